// Package splitter turns one logical document into an ordered list of
// addressable fragments. Splitting is a pure function of the input text and
// the splitter configuration: re-splitting unchanged content always yields
// the same fragments in the same order.
package splitter

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	DefaultChunkSize            = 800
	DefaultChunkOverlap         = 150
	DefaultToolExamplesPerChunk = 3
)

// Fragment is one chunk candidate. Text carries the fully-qualified header
// path prefix so the embedding step encodes hierarchical context. Path is
// the structural path (title, then H1..H6 as present). Attrs holds
// fragment-local attributes merged into the indexed chunk (tool fragments
// record their selected examples here).
type Fragment struct {
	Text  string
	Path  []string
	Attrs map[string]interface{}
}

type Splitter struct {
	chunkSize            int
	chunkOverlap         int
	toolExamplesPerChunk int
}

type Option func(*Splitter)

func WithWindow(size, overlap int) Option {
	return func(s *Splitter) {
		s.chunkSize = size
		s.chunkOverlap = overlap
	}
}

func WithToolExamplesPerChunk(n int) Option {
	return func(s *Splitter) { s.toolExamplesPerChunk = n }
}

func New(opts ...Option) *Splitter {
	s := &Splitter{
		chunkSize:            DefaultChunkSize,
		chunkOverlap:         DefaultChunkOverlap,
		toolExamplesPerChunk: DefaultToolExamplesPerChunk,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var headerRe = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)

type section struct {
	headers []string // header stack, outermost first
	body    string
}

// Split partitions markdown content along header boundaries (levels 1-6),
// then re-chunks each section under a bounded window with overlap. Every
// fragment's text is prefixed with the document title plus its header chain.
// A document with no headers yields a single top-level section; empty
// content yields no fragments.
func (s *Splitter) Split(title, content string) []Fragment {
	var fragments []Fragment
	for _, sec := range splitSections(content) {
		path := make([]string, 0, 1+len(sec.headers))
		if title != "" {
			path = append(path, title)
		}
		path = append(path, sec.headers...)

		for _, window := range s.window(sec.body) {
			fragments = append(fragments, Fragment{
				Text: renderFragment(path, window),
				Path: path,
			})
		}
	}
	return fragments
}

func renderFragment(path []string, body string) string {
	if len(path) == 0 {
		return body
	}
	return fmt.Sprintf("Section: %s\n\n%s", strings.Join(path, " > "), body)
}

// splitSections walks the content line by line, maintaining the header
// stack. Headers inside fenced code blocks are treated as content. Sections
// whose body is empty (header-only runs) produce nothing.
func splitSections(content string) []section {
	var (
		sections []section
		stack    [6]string
		depth    int
		body     []string
		inFence  bool
	)

	flush := func() {
		text := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if text == "" {
			return
		}
		headers := make([]string, 0, depth)
		for _, h := range stack[:depth] {
			if h != "" {
				headers = append(headers, h)
			}
		}
		sections = append(sections, section{headers: headers, body: text})
	}

	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
			body = append(body, line)
			continue
		}
		if m := headerRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil && !inFence {
			flush()
			level := len(m[1])
			stack[level-1] = strings.TrimSpace(m[2])
			for i := level; i < len(stack); i++ {
				stack[i] = ""
			}
			depth = level
			continue
		}
		body = append(body, line)
	}
	flush()

	return sections
}

// window re-chunks a section body under the configured size bound,
// preserving overlap continuity between adjacent windows. Separators are
// tried from coarsest to finest, mirroring a recursive character splitter.
func (s *Splitter) window(text string) []string {
	if len(text) <= s.chunkSize {
		return []string{text}
	}
	return s.splitRecursive(text, []string{"\n\n", "\n", " "})
}

func (s *Splitter) splitRecursive(text string, seps []string) []string {
	sep := ""
	var rest []string
	for i, candidate := range seps {
		if strings.Contains(text, candidate) {
			sep = candidate
			rest = seps[i+1:]
			break
		}
	}

	var units []string
	if sep == "" {
		units = hardCut(text, s.chunkSize)
	} else {
		for _, unit := range strings.Split(text, sep) {
			if len(unit) <= s.chunkSize {
				units = append(units, unit)
				continue
			}
			units = append(units, s.splitRecursive(unit, rest)...)
		}
	}

	return s.merge(units, sep)
}

// merge packs units into windows no larger than chunkSize, carrying a tail
// of up to chunkOverlap characters into the next window.
func (s *Splitter) merge(units []string, sep string) []string {
	var (
		windows []string
		current []string
		total   int
	)

	join := func(parts []string) string {
		return strings.TrimSpace(strings.Join(parts, sep))
	}

	for _, unit := range units {
		unitLen := len(unit)
		if total > 0 && total+unitLen+len(sep) > s.chunkSize {
			if window := join(current); window != "" {
				windows = append(windows, window)
			}
			// Drop units from the front until the retained tail fits the
			// overlap budget.
			for total > s.chunkOverlap || (total+unitLen+len(sep) > s.chunkSize && total > 0) {
				total -= len(current[0]) + len(sep)
				current = current[1:]
			}
		}
		current = append(current, unit)
		total += unitLen + len(sep)
	}
	if window := join(current); window != "" {
		windows = append(windows, window)
	}
	return windows
}

func hardCut(text string, size int) []string {
	var parts []string
	for len(text) > size {
		parts = append(parts, text[:size])
		text = text[size:]
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

// ToolDoc describes a callable tool whose knowledge is indexed as
// example-dense fragments rather than prose.
type ToolDoc struct {
	Name           string
	Description    string
	InputSchema    string
	Examples       []string
	RenderTemplate string
}

// SplitTool batches the tool's usage examples into fixed-size groups and
// emits one fragment per group. Tool-selection retrieval works better with
// several small example-dense chunks than one large chunk per tool.
func (s *Splitter) SplitTool(tool ToolDoc) []Fragment {
	var fragments []Fragment
	for i := 0; i < len(tool.Examples); i += s.toolExamplesPerChunk {
		end := i + s.toolExamplesPerChunk
		if end > len(tool.Examples) {
			end = len(tool.Examples)
		}
		selected := strings.Join(tool.Examples[i:end], "\n")

		text := fmt.Sprintf("Tool: %s\nDescription: %s\nInput schema: %s\nTrigger examples:\n%s",
			tool.Name, tool.Description, tool.InputSchema, selected)

		fragments = append(fragments, Fragment{
			Text: text,
			Path: []string{tool.Name},
			Attrs: map[string]interface{}{
				"toolName":         tool.Name,
				"toolDescription":  tool.Description,
				"inputSchema":      tool.InputSchema,
				"selectedExamples": selected,
				"renderTemplate":   tool.RenderTemplate,
			},
		})
	}
	return fragments
}
