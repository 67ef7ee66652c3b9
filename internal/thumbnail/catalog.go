package thumbnail

type Style struct {
	Key         string
	Label       string
	Description string
}

type NamedOption struct {
	Key  string
	Name string
}

const DefaultStyleKey = "可愛い"

var styleOrder = []string{
	"可愛い",
	"カッコいい",
	"リアル",
	"パンク",
}

var styleCatalog = map[string]Style{
	"可愛い": {
		Key:         "可愛い",
		Label:       "Cute",
		Description: "Extremely cute and adorable anime style, kawaii, moe, soft colors, sparkling eyes, for a heartwarming story.",
	},
	"カッコいい": {
		Key:         "カッコいい",
		Label:       "Cool",
		Description: "Dynamic and cool anime style, sharp lines, action-packed scene, intense lighting, stylish character design, for an action or fantasy story.",
	},
	"リアル": {
		Key:         "リアル",
		Label:       "Realistic",
		Description: "Highly detailed and realistic anime style, cinematic lighting, photorealistic textures, mature character designs, for a serious drama or sci-fi story.",
	},
	"パンク": {
		Key:         "パンク",
		Label:       "Punk",
		Description: "Cyberpunk or punk rock anime style, neon lights, gritty urban environment, rebellious attitude, futuristic gadgets, for a dystopian or sci-fi story.",
	},
}

// Styles returns the catalog in selector order.
func Styles() []Style {
	out := make([]Style, 0, len(styleOrder))
	for _, key := range styleOrder {
		if s, ok := styleCatalog[key]; ok {
			out = append(out, s)
		}
	}
	return out
}

func LookupStyle(key string) (Style, bool) {
	s, ok := styleCatalog[key]
	return s, ok
}

// StyleOptions lists selector entries. Japanese selectors show the key
// itself, every other locale shows the English label.
func StyleOptions(japanese bool) []NamedOption {
	styles := Styles()
	out := make([]NamedOption, 0, len(styles))
	for _, s := range styles {
		name := s.Label
		if japanese {
			name = s.Key
		}
		out = append(out, NamedOption{Key: s.Key, Name: name})
	}
	return out
}
