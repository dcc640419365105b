package simplecatalog

import (
	"slices"
	"strings"
)

// ShaderCategories lists every shader category, including legacy aliases.
var ShaderCategories = []string{
	"interactive", "generative", "distortion", "image", "artistic",
	"retro-glitch", "simulation", "geometric", "visual-effects", "liquid",
	"lighting", "reactive", "transition", "filter", "tessellation",
	"geometry", "warp", "feedback", "shader",
}

// CategoryGroup is a UI grouping of shader categories.
type CategoryGroup struct {
	Label         string   `json:"label"`
	Description   string   `json:"description"`
	Subcategories []string `json:"subcategories"`
}

// CategoryGroups maps group names to their subcategories.
var CategoryGroups = map[string]CategoryGroup{
	"interactive": {Label: "Interactive", Description: "Mouse and touch-driven effects", Subcategories: []string{"interactive"}},
	"generative":  {Label: "Generative", Description: "Procedural and algorithmic art", Subcategories: []string{"generative", "simulation"}},
	"distortion":  {Label: "Distortion", Description: "Warp, bend, and transform space", Subcategories: []string{"distortion", "warp"}},
	"image":       {Label: "Image", Description: "Filters, color grading, and adjustments", Subcategories: []string{"image", "filter"}},
	"artistic":    {Label: "Artistic", Description: "Stylized looks and painterly effects", Subcategories: []string{"artistic"}},
	"retro":       {Label: "Retro & Glitch", Description: "Vintage, analog, and digital corruption", Subcategories: []string{"retro-glitch", "glitch"}},
	"geometric":   {Label: "Geometric", Description: "Patterns, tessellation, and shapes", Subcategories: []string{"geometric", "tessellation", "geometry"}},
	"visual":      {Label: "Visual Effects", Description: "Particles, glow, overlays, and VFX", Subcategories: []string{"visual-effects", "lighting"}},
	"liquid":      {Label: "Liquid", Description: "Fluid, water, oil, and viscous effects", Subcategories: []string{"liquid"}},
	"other":       {Label: "Other", Description: "Miscellaneous and specialized effects", Subcategories: []string{"transition", "feedback", "shader", "reactive"}},
}

// CategoryCatalog is returned by Service.Categories.
type CategoryCatalog struct {
	Groups        map[string]CategoryGroup `json:"groups"`
	AllCategories []string                 `json:"all_categories"`
}

// knownCategory reports whether name is a group or a category.
func knownCategory(name string) bool {
	if _, ok := CategoryGroups[name]; ok {
		return true
	}
	return slices.Contains(ShaderCategories, name)
}

// categoryMatcher returns a predicate selecting shaders in category. A group
// name expands to its subcategories. A shader matches on its "category"
// field, on any tag, or on a subcategory appearing in its description.
func categoryMatcher(category string) func(Record) bool {
	subcats := []string{category}
	if g, ok := CategoryGroups[category]; ok {
		subcats = g.Subcategories
	}
	return func(r Record) bool {
		if slices.Contains(subcats, r.ExtraString("category")) {
			return true
		}
		for _, tag := range r.Tags {
			if slices.Contains(subcats, tag) {
				return true
			}
		}
		desc := strings.ToLower(r.Description)
		for _, sc := range subcats {
			if strings.Contains(desc, strings.ToLower(sc)) {
				return true
			}
		}
		return false
	}
}
