package editor

import (
	"fmt"
	"regexp"

	"cmseditor/domain/core/entities"
)

// Ranking binds an editor to a resource type with a priority
type Ranking struct {
	ResourceType entities.ResourceType
	Rank         float64
}

// Descriptor describes one pluggable editor implementation
type Descriptor struct {
	Name       string
	Kind       Kind
	Widget     bool
	Rankings   []Ranking
	UserAgents []*regexp.Regexp
}

// NewDescriptor compiles the user agent patterns and checks the definition
func NewDescriptor(name string, kind Kind, widget bool, rankings []Ranking, userAgents []string) (Descriptor, error) {
	if name == "" {
		return Descriptor{}, fmt.Errorf("editor name is required")
	}
	if len(rankings) == 0 {
		return Descriptor{}, fmt.Errorf("editor %s handles no resource type", name)
	}
	for _, r := range rankings {
		if !r.ResourceType.Valid() {
			return Descriptor{}, fmt.Errorf("editor %s: unknown resource type %q", name, r.ResourceType)
		}
		if !kind.Handles(r.ResourceType) {
			return Descriptor{}, fmt.Errorf("editor %s: kind %s cannot edit %s", name, kind, r.ResourceType)
		}
	}
	d := Descriptor{Name: name, Kind: kind, Widget: widget, Rankings: rankings}
	for _, pattern := range userAgents {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Descriptor{}, fmt.Errorf("editor %s: user agent pattern %q: %w", name, pattern, err)
		}
		d.UserAgents = append(d.UserAgents, re)
	}
	return d, nil
}

// Rank returns the ranking for t, or false when the editor does not handle t
func (d Descriptor) Rank(t entities.ResourceType) (float64, bool) {
	for _, r := range d.Rankings {
		if r.ResourceType == t {
			return r.Rank, true
		}
	}
	return 0, false
}

// MatchesAgent reports whether the editor works in the given browser.
// Editors without patterns work everywhere.
func (d Descriptor) MatchesAgent(userAgent string) bool {
	if len(d.UserAgents) == 0 {
		return true
	}
	for _, re := range d.UserAgents {
		if re.MatchString(userAgent) {
			return true
		}
	}
	return false
}

// SelectEditor picks the editor for a resource type. The preferred editor
// wins when it handles the type and the browser; otherwise the highest
// ranking matching editor is used.
func SelectEditor(editors []Descriptor, t entities.ResourceType, userAgent, preferred string) (Descriptor, bool) {
	if preferred != "" {
		for _, d := range editors {
			if d.Name != preferred {
				continue
			}
			if _, ok := d.Rank(t); ok && d.MatchesAgent(userAgent) {
				return d, true
			}
		}
	}

	var best Descriptor
	found := false
	bestRank := 0.0
	for _, d := range editors {
		rank, ok := d.Rank(t)
		if !ok || !d.MatchesAgent(userAgent) {
			continue
		}
		if !found || rank > bestRank {
			best, bestRank, found = d, rank, true
		}
	}
	return best, found
}

// DefaultDescriptors are used when no editor configuration is available
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "plaintext", Kind: KindPlainText, Rankings: []Ranking{{entities.TypePlain, 1}}},
		{Name: "simplepage", Kind: KindSimplePage, Rankings: []Ranking{{entities.TypeXMLPage, 1}}},
		{Name: "defaultpage", Kind: KindDefaultPage, Widget: true, Rankings: []Ranking{{entities.TypeXMLPage, 2}}},
		{Name: "xmlcontent", Kind: KindXMLContent, Widget: true, Rankings: []Ranking{{entities.TypeXMLContent, 1}}},
	}
}
