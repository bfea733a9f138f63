package scanner

import "strings"

// languageByExtension maps file extensions to language names.
var languageByExtension = map[string]string{
	".py":    "Python",
	".js":    "JavaScript",
	".jsx":   "JavaScript",
	".ts":    "TypeScript",
	".tsx":   "TypeScript",
	".java":  "Java",
	".cpp":   "C++",
	".c":     "C",
	".h":     "C",
	".hpp":   "C++",
	".cs":    "C#",
	".php":   "PHP",
	".rb":    "Ruby",
	".go":    "Go",
	".rs":    "Rust",
	".swift": "Swift",
	".kt":    "Kotlin",
	".scala": "Scala",
	".md":    "Markdown",
	".txt":   "Text",
	".json":  "JSON",
	".yml":   "YAML",
	".yaml":  "YAML",
}

// codeLanguages are languages that benefit from structural chunking.
var codeLanguages = map[string]bool{
	"Python": true, "JavaScript": true, "TypeScript": true,
	"Java": true, "C++": true, "C": true, "C#": true,
	"PHP": true, "Ruby": true, "Go": true, "Rust": true,
	"Swift": true, "Kotlin": true, "Scala": true,
}

// DetectLanguage returns the language name for a file extension,
// or "Unknown" if the extension is not recognized.
func DetectLanguage(ext string) string {
	if lang, ok := languageByExtension[strings.ToLower(ext)]; ok {
		return lang
	}
	return "Unknown"
}

// IsCode reports whether a language has structural declaration syntax.
func IsCode(language string) bool {
	return codeLanguages[language]
}
