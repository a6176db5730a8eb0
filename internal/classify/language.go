package classify

import (
	"path"
	"strings"
)

// Language identifies the source language of a file.
type Language string

const (
	LangUnknown    Language = ""
	LangRuby       Language = "ruby"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangPython     Language = "python"
	LangJava       Language = "java"
	LangGo         Language = "go"
	LangCSharp     Language = "csharp"
	LangPHP        Language = "php"
	LangKotlin     Language = "kotlin"
	LangSwift      Language = "swift"
	LangRust       Language = "rust"
	LangScala      Language = "scala"
	LangElixir     Language = "elixir"
)

// Syntax groups languages whose block structure can be scanned the same way.
type Syntax int

const (
	// SyntaxBrace languages delimit blocks with { }.
	SyntaxBrace Syntax = iota
	// SyntaxRuby languages open blocks with keywords and close them with `end`.
	SyntaxRuby
	// SyntaxPython languages delimit blocks by indentation.
	SyntaxPython
)

var sourceExtensions = map[string]Language{
	".rb":    LangRuby,
	".js":    LangJavaScript,
	".jsx":   LangJavaScript,
	".mjs":   LangJavaScript,
	".ts":    LangTypeScript,
	".tsx":   LangTypeScript,
	".py":    LangPython,
	".java":  LangJava,
	".go":    LangGo,
	".cs":    LangCSharp,
	".php":   LangPHP,
	".kt":    LangKotlin,
	".swift": LangSwift,
	".rs":    LangRust,
	".scala": LangScala,
	".ex":    LangElixir,
	".exs":   LangElixir,
}

// LanguageOf returns the language implied by p's extension.
func LanguageOf(p string) Language {
	return sourceExtensions[strings.ToLower(path.Ext(p))]
}

// IsSourceExtension reports whether p has an analyzable source extension.
func IsSourceExtension(p string) bool {
	_, ok := sourceExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

// Syntax returns the block-structure family of l.
func (l Language) Syntax() Syntax {
	switch l {
	case LangRuby, LangElixir:
		return SyntaxRuby
	case LangPython:
		return SyntaxPython
	default:
		return SyntaxBrace
	}
}

// HashComments reports whether l uses '#' line comments.
func (l Language) HashComments() bool {
	switch l {
	case LangRuby, LangPython, LangElixir, LangPHP:
		return true
	}
	return false
}

// SlashComments reports whether l uses '//' and '/* */' comments.
func (l Language) SlashComments() bool {
	switch l {
	case LangRuby, LangPython, LangElixir, LangUnknown:
		return false
	}
	return true
}

// SnakeCase reports whether l's community convention names functions in snake_case.
func (l Language) SnakeCase() bool {
	switch l {
	case LangRuby, LangPython, LangElixir, LangRust:
		return true
	}
	return false
}
