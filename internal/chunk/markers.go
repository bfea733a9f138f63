package chunk

import "regexp"

// structuralMarkers maps a language to the line patterns that open a new
// declaration (functions, classes, types, decorators, template headers).
// A matching line is a preferred split point during segmentation.
var structuralMarkers = map[string][]*regexp.Regexp{
	"Python": compileAll(
		`^\s*def\s+`,
		`^\s*class\s+`,
		`^\s*@\w+`,
		`^\s*if\s+__name__`,
	),
	"JavaScript": compileAll(
		`^\s*function\s+`,
		`^\s*class\s+`,
		`^\s*const\s+\w+\s*=\s*\(`,
		`^\s*export\s+`,
	),
	"TypeScript": compileAll(
		`^\s*function\s+`,
		`^\s*class\s+`,
		`^\s*interface\s+`,
		`^\s*type\s+`,
	),
	"Java": compileAll(
		`^\s*public\s+class\s+`,
		`^\s*private\s+\w+`,
		`^\s*public\s+\w+`,
		`^\s*@\w+`,
	),
	"C++": compileAll(
		`^\s*class\s+`,
		`^\s*struct\s+`,
		`^\s*\w+\s*::\s*`,
		`^\s*template\s*<`,
	),
	"C": compileAll(
		`^\s*\w+\s+\w+\s*\(`,
		`^\s*struct\s+`,
		`^\s*typedef\s+`,
		`^\s*#define\s+`,
	),
	"Go": compileAll(
		`^func\s+`,
		`^type\s+`,
		`^var\s+`,
		`^const\s+`,
	),
	"Rust": compileAll(
		`^\s*fn\s+`,
		`^\s*pub\s+`,
		`^\s*struct\s+`,
		`^\s*impl\s+`,
		`^\s*trait\s+`,
	),
}

func compileAll(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		compiled[i] = regexp.MustCompile(p)
	}
	return compiled
}

// markersFor returns the marker set for a language, or nil when the
// language has no known structural syntax.
func markersFor(language string) []*regexp.Regexp {
	return structuralMarkers[language]
}

func isStructuralBoundary(markers []*regexp.Regexp, line string) bool {
	for _, m := range markers {
		if m.MatchString(line) {
			return true
		}
	}
	return false
}
