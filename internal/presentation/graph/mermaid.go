package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/tessera/pkg/domain"
)

// Overlay marks blocks by their path (root/children[0]/...).
type Overlay struct {
	Problems []string
}

// GenerateMermaid produces a Mermaid flowchart of a script's block tree.
// Shapes follow the block kind:
//   - Trigger: ((Circle))
//   - Condition: {Rhombus}
//   - Loop: [[Subroutine]]
//   - Control: >Flag]
//   - Action: [Rectangle]
func GenerateMermaid(s *domain.Script, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if s.Root != nil {
		writeBlock(&sb, s.Root, "root", "n")
	}

	if overlay != nil && len(overlay.Problems) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef problem fill:#fee2e2,stroke:#b91c1c,stroke-width:2px,color:#000;\n")
		seen := make(map[string]bool)
		for _, p := range overlay.Problems {
			id := nodeID(p)
			if id == "" || seen[id] {
				continue
			}
			seen[id] = true
			sb.WriteString(fmt.Sprintf("    class %s problem;\n", id))
		}
	}
	return sb.String()
}

func writeBlock(sb *strings.Builder, b *domain.Block, path, id string) {
	opener, closer := "[", "]"
	switch b.Kind {
	case domain.KindTrigger:
		opener, closer = "((", "))"
	case domain.KindCondition:
		opener, closer = "{", "}"
	case domain.KindLoop:
		opener, closer = "[[", "]]"
	case domain.KindControl:
		opener, closer = ">", "]"
	}
	sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label(b), closer))

	for i, c := range b.Children {
		childID := fmt.Sprintf("%s_%d", id, i)
		writeBlock(sb, c, fmt.Sprintf("%s/children[%d]", path, i), childID)
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", id, childID))
	}
}

// label renders the block type and its parameters in key order.
func label(b *domain.Block) string {
	text := b.Type
	if b.ID != "" {
		text = b.ID + ": " + text
	}
	if len(b.Params) > 0 {
		keys := make([]string, 0, len(b.Params))
		for k := range b.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, fmt.Sprintf("%s=%v", k, b.Params[k]))
		}
		text += " <br/> " + strings.Join(parts, ", ")
	}
	return strings.ReplaceAll(text, "\"", "'")
}

// nodeID maps a block path to its Mermaid node ID.
func nodeID(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] != "root" {
		return ""
	}
	id := "n"
	for _, p := range parts[1:] {
		idx, ok := strings.CutPrefix(p, "children[")
		if !ok {
			return ""
		}
		id += "_" + strings.TrimSuffix(idx, "]")
	}
	return id
}
