package chunk

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// topLevelNodeTypes lists the tree-sitter node kinds this package treats
// as chunk boundaries per language: never split inside one of these.
var topLevelNodeTypes = map[string]map[string]bool{
	".go": {"function_declaration": true, "method_declaration": true, "type_declaration": true},
	".py": {"function_definition": true, "class_definition": true},
	".js": {"function_declaration": true, "class_declaration": true, "method_definition": true},
	".ts": {"function_declaration": true, "class_declaration": true, "method_definition": true},
	".tsx": {"function_declaration": true, "class_declaration": true, "method_definition": true},
	".rs": {"function_item": true, "impl_item": true, "struct_item": true},
}

func languageFor(ext string) sitter.Language {
	switch ext {
	case ".go":
		return golang.GetLanguage()
	case ".py":
		return python.GetLanguage()
	case ".js":
		return javascript.GetLanguage()
	case ".ts", ".tsx":
		return typescript.GetLanguage()
	case ".rs":
		return rust.GetLanguage()
	default:
		return nil
	}
}

// splitAST splits content at top-level function/class/block boundaries
// for a recognized source language, packing consecutive top-level nodes
// into chunks up to MaxTokens without ever dividing a single construct.
// Returns nil when the extension is unrecognized, signaling the caller to
// fall back to prose packing.
func splitAST(content, filePath string, opts Options) []string {
	ext := strings.ToLower(filepath.Ext(filePath))
	lang := languageFor(ext)
	boundaries := topLevelNodeTypes[ext]
	if lang == nil || boundaries == nil {
		return nil
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	src := []byte(content)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return nil
	}
	defer tree.Close()

	root := tree.RootNode()
	var segments []string
	var cursorEnd uint32

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil {
			continue
		}
		if !boundaries[child.Type()] {
			continue
		}
		start, end := child.StartByte(), child.EndByte()
		if start > cursorEnd {
			// Preserve any leading comment/whitespace immediately before the
			// construct by folding it into the same segment.
			start = cursorEnd
		}
		segments = append(segments, string(src[start:end]))
		cursorEnd = end
	}
	if len(segments) == 0 {
		return nil
	}
	if cursorEnd < uint32(len(src)) {
		trailer := strings.TrimSpace(string(src[cursorEnd:]))
		if trailer != "" {
			segments = append(segments, trailer)
		}
	}

	return packSegments(segments, opts)
}

// packSegments greedily concatenates segments into chunks up to
// MaxTokens. A segment that alone exceeds MaxTokens is never split: it
// becomes a chunk of its own.
func packSegments(segments []string, opts Options) []string {
	var chunks []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
		}
	}

	for _, seg := range segments {
		if estimateTokens(seg) > opts.MaxTokens && current.Len() == 0 {
			chunks = append(chunks, seg)
			continue
		}
		if estimateTokens(current.String()+seg) > opts.MaxTokens {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(seg)
	}
	flush()
	return chunks
}
