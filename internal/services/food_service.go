package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"breeze/internal/ai"
	"breeze/internal/cache"
	"breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/types"
)

// WeatherBucket groups weather descriptions for the fallback suggestions
type WeatherBucket string

const (
	WeatherHot   WeatherBucket = "hot"
	WeatherCold  WeatherBucket = "cold"
	WeatherRainy WeatherBucket = "rainy"
	WeatherMild  WeatherBucket = "mild"
)

var weatherKeywords = []struct {
	bucket   WeatherBucket
	keywords []string
}{
	{WeatherHot, []string{"hot", "sunny", "warm", "heat", "scorching"}},
	{WeatherCold, []string{"cold", "chilly", "freezing", "snow", "winter", "frost"}},
	{WeatherRainy, []string{"rain", "drizzle", "storm", "cloudy", "overcast", "shower", "thunder"}},
}

// ClassifyWeather maps a free-text description to a bucket, mild by default
func ClassifyWeather(description string) WeatherBucket {
	d := strings.ToLower(description)
	for _, group := range weatherKeywords {
		for _, kw := range group.keywords {
			if strings.Contains(d, kw) {
				return group.bucket
			}
		}
	}
	return WeatherMild
}

// FoodSuggestionService suggests meals for the user's weather
type FoodSuggestionService struct {
	gen     ai.Generator
	weather WeatherLookup
	cache   *cache.Cache
	logger  logging.Logger
}

// NewFoodSuggestionService accepts nil for any collaborator
func NewFoodSuggestionService(gen ai.Generator, weather WeatherLookup, c *cache.Cache, logger logging.Logger) *FoodSuggestionService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &FoodSuggestionService{gen: gen, weather: weather, cache: c, logger: logger}
}

// Suggest returns suggestions for req. A missing weather description is
// looked up; a failed lookup counts as mild weather.
func (s *FoodSuggestionService) Suggest(ctx context.Context, req types.FoodSuggestionRequest) (types.FoodSuggestions, error) {
	location := strings.TrimSpace(req.Location)
	if location == "" {
		return types.FoodSuggestions{}, errors.HandleValidationError("FoodSuggestions", "location", req.Location, "location is required")
	}

	weather := strings.TrimSpace(req.Weather)
	if weather == "" && s.weather != nil {
		described, err := s.weather.Describe(ctx, location)
		if err != nil {
			logging.LogError(s.logger, err, "FoodSuggestions.weather", map[string]interface{}{"location": location})
		} else {
			weather = described
		}
	}

	out := types.FoodSuggestions{Location: location, Weather: weather}

	key := fmt.Sprintf("food|%s|%s|%s", strings.ToLower(location), strings.ToLower(weather), strings.ToLower(req.Preferences))
	if v, ok := s.cache.Get(key); ok {
		if text, ok := v.(string); ok {
			out.Suggestions, out.Source = text, types.SourceCache
			return out, nil
		}
	}

	if s.gen != nil {
		start := time.Now()
		text, err := generateText(ctx, s.gen, "FoodSuggestions", FoodPrompt(location, weather, req.Preferences))
		if err == nil && text == "" {
			err = errors.HandleUpstreamError("FoodSuggestions", "decode", fmt.Errorf("empty reply"))
		}
		if err == nil {
			s.cache.Set(key, text, int64(len(text)))
			logging.LogOperation(s.logger, "FoodSuggestions", time.Since(start), map[string]interface{}{"location": location})
			out.Suggestions, out.Source = text, types.SourceAI
			return out, nil
		}
		logging.LogError(s.logger, err, "FoodSuggestions", map[string]interface{}{"location": location})
	}

	out.Suggestions, out.Source = FallbackFoodSuggestions(location, weather), types.SourceFallback
	return out, nil
}

// FoodPrompt asks for short, practical meal ideas
func FoodPrompt(location, weather, preferences string) string {
	if weather == "" {
		weather = "unknown"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are a nutrition coach. Suggest healthy foods and drinks for someone in %s.\n", location)
	fmt.Fprintf(&b, "Current weather: %s.\n", weather)
	if p := strings.TrimSpace(preferences); p != "" {
		fmt.Fprintf(&b, "Dietary preferences: %s.\n", p)
	}
	b.WriteString("Group the ideas under short headings (hydration, meals, snacks, tips), 3-4 bullet points each. ")
	b.WriteString("Prefer local and seasonal ingredients. Plain text only.")
	return b.String()
}

var foodFallbacks = map[WeatherBucket]string{
	WeatherHot: `Perfect weather for refreshing, hydrating foods in %s!

Hydration Focus:
• Coconut water or infused water with cucumber, mint, or citrus
• Fresh fruit smoothies with berries and banana
• Herbal iced teas (green tea, chamomile)

Light & Fresh:
• Greek salad with tomatoes, cucumbers, and feta
• Gazpacho or cold soups
• Fresh fruit salad with watermelon, cantaloupe, and berries
• Sushi or poke bowls with fresh fish

Cooling Foods:
• Yogurt parfaits with granola
• Frozen grapes or banana "nice cream"
• Cucumber and mint salad
• Light pasta salads with vegetables

Tips:
• Avoid heavy, greasy foods that can make you feel sluggish in the heat
• Eat smaller, more frequent meals
• Focus on foods with high water content
• Consider lighter cooking methods like grilling or steaming`,

	WeatherCold: `Cozy comfort foods are perfect for this cold weather in %s!

Warming Soups & Stews:
• Hearty vegetable soup with root vegetables
• Chicken noodle soup or bone broth
• Lentil or bean stew with warming spices
• Miso soup with tofu and seaweed

Comfort Foods:
• Oatmeal with nuts, seeds, and warm spices
• Roasted vegetables (sweet potato, carrots, Brussels sprouts)
• Quinoa or brown rice bowls with roasted vegetables
• Baked apples with cinnamon and nuts

Warming Beverages:
• Herbal teas (ginger, chamomile, peppermint)
• Golden milk with turmeric and ginger
• Hot chocolate with dark cocoa
• Warm lemon water with honey

Tips:
• Include warming spices like ginger, cinnamon, and turmeric
• Focus on root vegetables and hearty grains
• Consider slow-cooked meals for maximum comfort
• Don't forget to stay hydrated even in cold weather`,

	WeatherRainy: `Rainy day comfort foods will brighten your mood in %s!

Comfort Classics:
• Mac and cheese with vegetables
• Grilled cheese with tomato soup
• Pasta with marinara sauce and vegetables
• Risotto with mushrooms and herbs

Cozy Beverages:
• Hot tea or coffee with your favorite milk
• Hot chocolate with marshmallows
• Warm apple cider with spices
• Golden milk latte

Indulgent Treats:
• Fresh baked cookies or muffins
• Banana bread or zucchini bread
• Rice pudding or bread pudding
• Dark chocolate with nuts

Tips:
• Focus on foods that bring comfort and warmth
• Include mood-boosting foods like dark chocolate
• Consider making a big pot of soup to last the day
• Don't forget your vegetables - add them to comfort foods`,

	WeatherMild: `Lovely weather in %s! Perfect for balanced, nutritious meals.

Fresh & Balanced:
• Buddha bowls with grains, vegetables, and protein
• Fresh salads with seasonal ingredients
• Grilled fish or chicken with roasted vegetables
• Quinoa or brown rice with stir-fried vegetables

Seasonal Focus:
• Fresh fruit with yogurt and granola
• Vegetable stir-fries with lean protein
• Whole grain wraps with hummus and vegetables
• Smoothie bowls with fresh toppings

Hydration:
• Infused water with fruits and herbs
• Green tea or herbal teas
• Fresh fruit juices (in moderation)
• Sparkling water with citrus

Tips:
• Take advantage of the pleasant weather for outdoor dining
• Focus on seasonal, local ingredients
• Balance your macronutrients
• Stay hydrated and enjoy the fresh air`,
}

// FallbackFoodSuggestions is the fixed text for the weather's bucket
func FallbackFoodSuggestions(location, weather string) string {
	return fmt.Sprintf(foodFallbacks[ClassifyWeather(weather)], location)
}
