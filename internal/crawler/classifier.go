package crawler

import "strings"

// FallbackCategory is assigned when no category keyword matches.
const FallbackCategory = "general"

// Category is one row of the classifier's keyword table.
type Category struct {
	Name     string
	Keywords []string
}

// DefaultCategories is the keyword table for the DJI Mobile SDK reference.
// Order matters: the first category with a matching keyword wins.
var DefaultCategories = []Category{
	{Name: "camera", Keywords: []string{"camera", "djicamera"}},
	{Name: "mediamanager", Keywords: []string{"mediamanager", "media"}},
	{Name: "playback", Keywords: []string{"playback", "playbackmanager"}},
	{Name: "gimbal", Keywords: []string{"gimbal", "djigimbal"}},
	{Name: "flightcontroller", Keywords: []string{"flightcontroller", "flight"}},
	{Name: "battery", Keywords: []string{"battery", "djibattery"}},
	{Name: "remotecontroller", Keywords: []string{"remotecontroller", "remote"}},
	{Name: "airlink", Keywords: []string{"airlink", "djiairlink"}},
	{Name: "handheld", Keywords: []string{"handheld", "djihandheld"}},
	{Name: "payload", Keywords: []string{"payload", "djipayload"}},
	{Name: "rtk", Keywords: []string{"rtk", "djirtk"}},
	{Name: "simulator", Keywords: []string{"simulator", "djisimulator"}},
	{Name: "utils", Keywords: []string{"util", "common", "error"}},
	{Name: "mission", Keywords: []string{"mission", "waypoint", "hotpoint"}},
}

// Classifier assigns a category label to a page.
type Classifier struct {
	categories []Category
}

// NewClassifier returns a Classifier over categories.
// An empty table selects DefaultCategories.
func NewClassifier(categories []Category) *Classifier {
	if len(categories) == 0 {
		categories = DefaultCategories
	}

	normalized := make([]Category, 0, len(categories))
	for _, c := range categories {
		keywords := make([]string, 0, len(c.Keywords))
		for _, k := range c.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				keywords = append(keywords, k)
			}
		}
		normalized = append(normalized, Category{Name: c.Name, Keywords: keywords})
	}
	return &Classifier{categories: normalized}
}

// Classify returns the first category having a keyword contained in the
// lower-cased URL or text, or FallbackCategory.
func (c *Classifier) Classify(pageURL, text string) string {
	u := strings.ToLower(pageURL)
	t := strings.ToLower(text)

	for _, category := range c.categories {
		for _, k := range category.Keywords {
			if strings.Contains(u, k) || strings.Contains(t, k) {
				return category.Name
			}
		}
	}
	return FallbackCategory
}
