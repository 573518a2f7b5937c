package layout

// Result describes a typeset document: its pages and paragraphs as the
// engine produced them. It is also the debug JSON.
type Result struct {
	Meta       DocumentMeta    `json:"meta"`
	Fonts      []FontResource  `json:"fonts"`
	Pages      []PageInfo      `json:"pages"`
	Paragraphs []ParagraphInfo `json:"paragraphs"`
	// Digest covers the digests of all pages in order.
	Digest string `json:"digest"`
}

// FontResource is a font declared in the resources section. Char nodes
// refer to it by its index in Result.Fonts.
type FontResource struct {
	Name string `json:"name"`
	Src  string `json:"src"`
	Size Dimen  `json:"size"`
}

// PageInfo records one shipped page.
type PageInfo struct {
	Number        int    `json:"number"`
	Width         Dimen  `json:"width"`
	Height        Dimen  `json:"height"`
	Depth         Dimen  `json:"depth"`
	OutputPenalty int    `json:"outputPenalty"`
	TopMark       string `json:"topMark,omitempty"`
	FirstMark     string `json:"firstMark,omitempty"`
	BotMark       string `json:"botMark,omitempty"`
	Digest        string `json:"digest"`
	Dump          string `json:"dump,omitempty"`
}

// ParagraphInfo records how a paragraph was broken.
type ParagraphInfo struct {
	Lines int `json:"lines"`
	Pass  int `json:"pass"`
}

// DocumentMeta holds PDF document information.
type DocumentMeta struct {
	Title    string   `json:"title"`
	Author   string   `json:"author"`
	Subject  string   `json:"subject"`
	Creator  string   `json:"creator"`
	Keywords []string `json:"keywords"`
}
