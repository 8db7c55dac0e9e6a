package types

type Ingredient struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

type RecipeRequest struct {
	DishName string `json:"dishName"`
	Servings int    `json:"servings,omitempty"`
	Location string `json:"location,omitempty"`
}

type Recipe struct {
	Title         string       `json:"title"`
	Servings      int          `json:"servings"`
	Ingredients   []Ingredient `json:"ingredients"`
	Steps         []string     `json:"steps"`
	NutritionTips []string     `json:"nutritionTips"`
}

// Source tells callers whether a result came from the AI provider or a local fallback
type Source string

const (
	SourceAI       Source = "ai"
	SourceFallback Source = "fallback"
	SourceCache    Source = "cache"
)

type FoodSuggestionRequest struct {
	Location    string `json:"location"`
	Weather     string `json:"weather,omitempty"`
	Preferences string `json:"preferences,omitempty"`
}

type FoodSuggestions struct {
	Location    string `json:"location"`
	Weather     string `json:"weather"`
	Suggestions string `json:"suggestions"`
	Source      Source `json:"source"`
}

type EmotionRequest struct {
	Text string `json:"text"`
}

type EmotionAnalysis struct {
	Emotion     string   `json:"emotion"`
	Suggestions []string `json:"suggestions"`
	Source      Source   `json:"source"`
}
