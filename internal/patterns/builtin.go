package patterns

import "sync"

// builtinVersion identifies the compiled-in library
const builtinVersion = "builtin"

// BuiltinDefinition returns the compiled-in pattern definition. Vendor order is the reporting
// order for ties
func BuiltinDefinition() Definition {
	return Definition{
		Version: builtinVersion,
		Vendors: []VendorDefinition{
			{
				Name:    "Intercom",
				Scripts: []string{`widget\.intercom\.io`, `js\.intercomcdn\.com`},
				DOM:     []string{`id=["']intercom-(container|frame|launcher)`},
				Config:  []string{`intercomSettings\s*=`},
				Init:    []string{`Intercom\(\s*['"](boot|update)`},
			},
			{
				Name:    "Drift",
				Scripts: []string{`js\.driftt\.com`, `js\.drift\.com`},
				DOM:     []string{`id=["']drift-(widget|frame)`},
				Config:  []string{`window\.drift\s*=`},
				Init:    []string{`drift\.load\(`},
			},
			{
				Name:    "Zendesk",
				Aliases: []string{"Zendesk Chat", "Zopim"},
				Scripts: []string{`static\.zdassets\.com`, `ekr\.zdassets\.com`, `v2\.zopim\.com`},
				Config:  []string{`zESettings\s*=`, `\$zopim`},
				Init:    []string{`zE\(\s*['"](webWidget|messenger)`},
			},
			{
				Name:    "LiveChat",
				Scripts: []string{`cdn\.livechatinc\.com`},
				Config:  []string{`__lc\.license`, `window\.__lc\s*=`},
				Init:    []string{`LiveChatWidget\.(init|call|on)`},
			},
			{
				Name:    "Tawk.to",
				Aliases: []string{"Tawk"},
				Scripts: []string{`embed\.tawk\.to`},
				Config:  []string{`Tawk_API\s*=`},
				Init:    []string{`Tawk_LoadStart`},
			},
			{
				Name:    "Crisp",
				Scripts: []string{`client\.crisp\.chat`},
				Config:  []string{`CRISP_WEBSITE_ID`},
				Init:    []string{`\$crisp\.push\(`},
			},
			{
				Name:    "HubSpot",
				Aliases: []string{"HubSpot Chat", "HubSpot Conversations"},
				Scripts: []string{`js\.usemessages\.com`},
				DOM:     []string{`id=["']hubspot-messages-iframe-container`},
				Config:  []string{`HubSpotConversations`, `hsConversationsSettings`},
			},
			{
				Name:    "Olark",
				Scripts: []string{`static\.olark\.com`},
				Init:    []string{`olark\.identify\(`, `olark\(\s*['"]api\.`},
			},
			{
				Name:    "Freshchat",
				Aliases: []string{"Freshworks Messaging"},
				Scripts: []string{`wchat\.freshchat\.com`, `snippets\.freshchat\.com`},
				Config:  []string{`window\.fcSettings`},
				Init:    []string{`fcWidget\.init\(`},
			},
			{
				Name:    "Tidio",
				Scripts: []string{`code\.tidio\.co`},
				DOM:     []string{`id=["']tidio-chat`},
				Config:  []string{`tidioChatApi`},
			},
			{
				Name:    "Chatra",
				Scripts: []string{`call\.chatra\.io`},
				Config:  []string{`ChatraID\s*=`},
			},
			{
				Name:    "Smartsupp",
				Scripts: []string{`smartsuppchat\.com/loader\.js`},
				Config:  []string{`_smartsupp\.key`},
			},
			{
				Name:    "Podium",
				Scripts: []string{`connect\.podium\.com`},
				DOM:     []string{`id=["']podium-(website-widget|bubble)`},
			},
			{
				Name:    "Birdeye",
				Scripts: []string{`birdeye\.com/embed`},
				DOM:     []string{`id=["']bfpublish`},
			},
			{
				Name:    "Help Scout",
				Aliases: []string{"Help Scout Beacon"},
				Scripts: []string{`beacon-v2\.helpscout\.net`},
				Init:    []string{`Beacon\(\s*['"]init`},
			},
			{
				Name:    "Gorgias",
				Scripts: []string{`config\.gorgias\.chat`},
				DOM:     []string{`id=["']gorgias-chat-container`},
			},
			{
				Name:    "Kommunicate",
				Scripts: []string{`widget\.kommunicate\.io`},
				Config:  []string{`kommunicateSettings`},
			},
			{
				Name:    "Userlike",
				Scripts: []string{`userlike-cdn-widgets`, `widget\.userlike\.com`},
			},
			{
				Name:    "LivePerson",
				Scripts: []string{`lptag\.liveperson\.net`, `lpcdn\.lpsnmedia\.net`},
				Config:  []string{`lpTag\.(site|section)`},
			},
			{
				Name:    "Comm100",
				Scripts: []string{`vue\.comm100\.com`, `chatserver\.comm100\.com`},
				Config:  []string{`Comm100API`},
			},
			{
				Name:    "Pure Chat",
				Aliases: []string{"PureChat"},
				Scripts: []string{`app\.purechat\.com`},
				Config:  []string{`purechatApi`},
			},
			{
				Name:    "Ada",
				Scripts: []string{`static\.ada\.support`},
				Config:  []string{`adaSettings\s*=`},
				Init:    []string{`adaEmbed\.start\(`},
			},
			{
				Name:    "Botpress",
				Scripts: []string{`cdn\.botpress\.cloud`, `mediafiles\.botpress\.cloud`},
				Init:    []string{`botpressWebChat\.init\(`},
			},
			{
				Name:    "Landbot",
				Scripts: []string{`static\.landbot\.io`, `cdn\.landbot\.io`},
				Init:    []string{`new\s+Landbot\.`},
			},
			{
				Name:    "ManyChat",
				Scripts: []string{`widget\.manychat\.com`},
			},
			{
				Name:    "Facebook Messenger",
				Aliases: []string{"Facebook Chat Plugin"},
				Scripts: []string{`xfbml\.customerchat\.js`},
				DOM:     []string{`class=["'][^"']*fb-customerchat`},
			},
			{
				Name:    "Zoho SalesIQ",
				Scripts: []string{`salesiq\.zoho(public)?\.(com|eu|in)`},
				Config:  []string{`\$zoho\.salesiq`},
			},
			{
				Name:    "Chatwoot",
				Scripts: []string{`app\.chatwoot\.com/packs/js/sdk\.js`},
				Config:  []string{`chatwootSettings\s*=`},
				Init:    []string{`chatwootSDK\.run\(`},
			},
			{
				Name:    "Re:amaze",
				Scripts: []string{`cdn\.reamaze\.com`},
				Config:  []string{`_support\[['"]account['"]\]`},
			},
			{
				Name:    "Dialogflow",
				Scripts: []string{`gstatic\.com/dialogflow-console/fast/messenger`},
				DOM:     []string{`<df-messenger`},
			},
			{
				Name:    "Microsoft Bot Framework",
				Scripts: []string{`cdn\.botframework\.com`},
				Init:    []string{`WebChat\.renderWebChat\(`},
			},
			{
				Name:    "Weave",
				Scripts: []string{`webchat\.getweave\.com`},
			},
		},
		Generic: GenericDefinition{
			DynamicLoad: []string{
				`createElement\(\s*['"]script['"]\s*\)[^<]{0,300}?(chat|messenger)`,
				`\b(loadChat|initChat|initChatWidget|openChatWidget)\s*\(`,
				`window\.(chat|livechat|chatbot)\w*\s*=\s*(function|\()`,
			},
			DOM: []string{
				`<(div|section|aside|iframe)[^>]+(id|class)=["'][^"']*(chat-?widget|chat-?container|chat-?bubble|chat-?launcher|chatbot|live-?chat|chat-?window|messenger-?widget)`,
				`<iframe[^>]+(title|name)=["'][^"']*(chat|messenger)`,
			},
			Meta: []string{
				`<meta[^>]+(name|property)=["'][^"']*(chat|messenger)`,
				`\b(chatConfig|chatSettings|chatbotConfig|chatWidgetConfig)\s*[=:]\s*\{`,
				`data-(chat|bot|chatbot)-(id|key|token)=`,
			},
			WebSocket: []string{
				`new\s+WebSocket\(\s*['"][^'"]*(chat|messag|conversation|support)`,
				`wss://[^"'\s]*(chat|messag|conversation)`,
			},
		},
		FalsePositiveDomains: []string{
			"kentdentists.com",
			"yelp.com",
			"yellowpages.com",
			"healthgrades.com",
			"zocdoc.com",
			"bbb.org",
			"facebook.com",
			"google.com",
		},
		FalsePositiveContent: []string{
			`\bwpcf7\b`,
			`gform_wrapper`,
			`wpforms-form`,
			`<form[^>]+(id|class|action)=["'][^"']*contact`,
			`href=["']mailto:`,
			`(newsletter|subscribe)-form`,
			`(submit|open)\s+a\s+(support\s+)?ticket`,
		},
	}
}

var (
	builtinOnce sync.Once
	builtinLib  *Library
)

// Builtin returns the compiled built-in library. The result is shared and must not be modified
func Builtin() *Library {
	builtinOnce.Do(func() {
		lib, err := Compile(BuiltinDefinition())
		if err != nil {
			panic(err)
		}

		builtinLib = lib
	})

	return builtinLib
}
