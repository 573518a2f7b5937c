package params

import "strings"

var intNames = map[string]Int{
	"pretolerance":         Pretolerance,
	"tolerance":            Tolerance,
	"linepenalty":          LinePenalty,
	"hyphenpenalty":        HyphenPenalty,
	"exhyphenpenalty":      ExHyphenPenalty,
	"clubpenalty":          ClubPenalty,
	"widowpenalty":         WidowPenalty,
	"displaywidowpenalty":  DisplayWidowPenalty,
	"brokenpenalty":        BrokenPenalty,
	"interlinepenalty":     InterLinePenalty,
	"doublehyphendemerits": DoubleHyphenDemerits,
	"finalhyphendemerits":  FinalHyphenDemerits,
	"adjdemerits":          AdjDemerits,
	"looseness":            Looseness,
	"hbadness":             HBadness,
	"vbadness":             VBadness,
	"maxdeadcycles":        MaxDeadCycles,
	"hangafter":            HangAfter,
	"holdinginserts":       HoldingInserts,
	"lefthyphenmin":        LeftHyphenMin,
	"righthyphenmin":       RightHyphenMin,
	"uchyph":               UcHyph,
	"language":             Language,
	"tracingparagraphs":    TracingParagraphs,
	"tracingpages":         TracingPages,
	"tracingonline":        TracingOnline,
	"outputpenalty":        OutputPenalty,
	"floatingpenalty":      FloatingPenalty,
}

var dimenNames = map[string]Dimen{
	"hsize":            HSize,
	"vsize":            VSize,
	"maxdepth":         MaxDepth,
	"splitmaxdepth":    SplitMaxDepth,
	"boxmaxdepth":      BoxMaxDepth,
	"hangindent":       HangIndent,
	"emergencystretch": EmergencyStretch,
	"hfuzz":            HFuzz,
	"vfuzz":            VFuzz,
	"lineskiplimit":    LineSkipLimit,
	"parindent":        ParIndent,
}

var glueNames = map[string]Glue{
	"lineskip":     LineSkip,
	"baselineskip": BaselineSkip,
	"parskip":      ParSkip,
	"leftskip":     LeftSkip,
	"rightskip":    RightSkip,
	"topskip":      TopSkip,
	"splittopskip": SplitTopSkip,
	"parfillskip":  ParFillSkip,
}

// normName folds a parameter name: case is ignored and a leading
// backslash is allowed.
func normName(name string) string {
	return strings.ToLower(strings.TrimPrefix(name, `\`))
}

// LookupInt finds an integer parameter by its TeX name.
func LookupInt(name string) (Int, bool) {
	p, ok := intNames[normName(name)]
	return p, ok
}

// LookupDimen finds a dimension parameter by its TeX name.
func LookupDimen(name string) (Dimen, bool) {
	p, ok := dimenNames[normName(name)]
	return p, ok
}

// LookupGlue finds a glue parameter by its TeX name.
func LookupGlue(name string) (Glue, bool) {
	p, ok := glueNames[normName(name)]
	return p, ok
}
