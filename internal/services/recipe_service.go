package services

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"breeze/internal/ai"
	"breeze/internal/cache"
	"breeze/internal/infrastructure/errors"
	"breeze/internal/infrastructure/logging"
	"breeze/internal/types"
)

const DefaultServings = 2

// RecipeService asks the generator for a healthy recipe and falls back to a
// fixed template when the reply is missing or malformed.
type RecipeService struct {
	gen    ai.Generator
	cache  *cache.Cache
	logger logging.Logger
}

// NewRecipeService accepts a nil generator (fallback only) and a nil cache
func NewRecipeService(gen ai.Generator, c *cache.Cache, logger logging.Logger) *RecipeService {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &RecipeService{gen: gen, cache: c, logger: logger}
}

// Healthy returns a recipe for req. The only error is a missing dish name;
// provider failures produce the fallback with SourceFallback.
func (s *RecipeService) Healthy(ctx context.Context, req types.RecipeRequest) (types.Recipe, types.Source, error) {
	dish := strings.TrimSpace(req.DishName)
	if dish == "" {
		return types.Recipe{}, "", errors.HandleValidationError("HealthyRecipe", "dishName", req.DishName, "dishName is required")
	}
	servings := req.Servings
	if servings <= 0 {
		servings = DefaultServings
	}

	key := recipeCacheKey(dish, servings, req.Location)
	if v, ok := s.cache.Get(key); ok {
		if recipe, ok := v.(types.Recipe); ok {
			return recipe, types.SourceCache, nil
		}
	}

	if s.gen == nil {
		return FallbackRecipe(dish, servings), types.SourceFallback, nil
	}

	start := time.Now()
	recipe, err := s.generate(ctx, dish, servings, req.Location)
	if err != nil {
		logging.LogError(s.logger, err, "HealthyRecipe", map[string]interface{}{
			"dish":     dish,
			"servings": servings,
		})
		return FallbackRecipe(dish, servings), types.SourceFallback, nil
	}

	s.cache.Set(key, recipe, recipeCost(recipe))
	logging.LogOperation(s.logger, "HealthyRecipe", time.Since(start), map[string]interface{}{
		"dish":        dish,
		"ingredients": len(recipe.Ingredients),
	})
	return recipe, types.SourceAI, nil
}

func (s *RecipeService) generate(ctx context.Context, dish string, servings int, location string) (types.Recipe, error) {
	text, err := generateText(ctx, s.gen, "HealthyRecipe", RecipePrompt(dish, servings, location))
	if err != nil {
		return types.Recipe{}, err
	}

	recipe, err := ai.DecodeJSON[types.Recipe]("HealthyRecipe", text)
	if err != nil {
		return types.Recipe{}, err
	}
	if strings.TrimSpace(recipe.Title) == "" || recipe.Ingredients == nil || recipe.Steps == nil {
		return types.Recipe{}, errors.HandleUpstreamError("HealthyRecipe", "decode",
			fmt.Errorf("reply is missing title, ingredients or steps"))
	}
	if recipe.NutritionTips == nil {
		recipe.NutritionTips = []string{}
	}
	recipe.Servings = servings
	return *recipe, nil
}

func recipeCacheKey(dish string, servings int, location string) string {
	return fmt.Sprintf("recipe|%s|%d|%s",
		strings.ToLower(dish), servings, strings.ToLower(strings.TrimSpace(location)))
}

func recipeCost(r types.Recipe) int64 {
	cost := len(r.Title)
	for _, ing := range r.Ingredients {
		cost += len(ing.Name) + len(ing.Unit) + 8
	}
	for _, s := range r.Steps {
		cost += len(s)
	}
	for _, s := range r.NutritionTips {
		cost += len(s)
	}
	return int64(cost)
}

// RecipePrompt asks for an Indian-style healthy recipe as strict JSON
func RecipePrompt(dish string, servings int, location string) string {
	locHint := "User location not provided. Prefer common Indian ingredients and widely available spices."
	if loc := strings.TrimSpace(location); loc != "" {
		locHint = fmt.Sprintf("User location: %s. Prefer local/seasonal Indian ingredients and regional styles relevant to this location.", loc)
	}

	return fmt.Sprintf(`You are a nutrition-focused chef. Generate a healthy, tasty recipe with an Indian cuisine focus.

Return ONLY strict JSON with this shape:
{
  "title": string,
  "servings": number,
  "ingredients": [{"name": string, "quantity": number, "unit": string}],
  "steps": string[],
  "nutritionTips": string[]
}

Constraints:
- Dish name: %s (adapt if needed to an Indian-style healthy version).
- Servings: %d.
- %s
- Focus on home-cook friendly methods, minimal oil, low sodium, high vegetables, adequate protein.
- Use Indian units when natural (tsp, tbsp, cup, grams), and common Indian ingredients (e.g., dals, millets, paneer, spices like turmeric, cumin, coriander, mustard seeds, curry leaves).`,
		dish, servings, locHint)
}

type recipeTemplate struct {
	suffix        string
	ingredients   []types.Ingredient // for two servings
	steps         []string
	nutritionTips []string
}

var soupTemplate = recipeTemplate{
	suffix: "(Light, High-veg)",
	ingredients: []types.Ingredient{
		{Name: "olive oil", Quantity: 1, Unit: "tbsp"},
		{Name: "yellow onion, diced", Quantity: 1, Unit: "small"},
		{Name: "garlic, minced", Quantity: 2, Unit: "cloves"},
		{Name: "carrots, diced", Quantity: 2, Unit: "medium"},
		{Name: "celery stalks, diced", Quantity: 2, Unit: "stalks"},
		{Name: "low-sodium vegetable broth", Quantity: 4, Unit: "cups"},
		{Name: "baby spinach", Quantity: 2, Unit: "cups"},
		{Name: "cooked white beans (or lentils)", Quantity: 1, Unit: "cup"},
		{Name: "fresh lemon juice", Quantity: 1, Unit: "tbsp"},
		{Name: "salt & pepper", Quantity: 0.5, Unit: "tsp each"},
	},
	steps: []string{
		"Heat olive oil in a pot over medium heat. Add onion and sauté 3–4 minutes until translucent.",
		"Add garlic, carrots, and celery. Cook 4–5 minutes, stirring occasionally.",
		"Pour in broth, bring to a boil, then reduce to a gentle simmer for 10–12 minutes until vegetables are tender.",
		"Stir in beans and spinach; simmer 2–3 minutes until spinach wilts.",
		"Finish with lemon juice, season with salt and pepper to taste. Serve warm.",
	},
	nutritionTips: []string{
		"Use low-sodium broth to manage sodium intake.",
		"Add whole grains (cooked barley or quinoa) for fiber.",
		"Top with fresh herbs instead of extra salt.",
	},
}

var bowlTemplate = recipeTemplate{
	suffix: "(Balanced Macro Bowl)",
	ingredients: []types.Ingredient{
		{Name: "cooked quinoa", Quantity: 1, Unit: "cup"},
		{Name: "cherry tomatoes, halved", Quantity: 1, Unit: "cup"},
		{Name: "cucumber, diced", Quantity: 1, Unit: "cup"},
		{Name: "mixed greens", Quantity: 2, Unit: "cups"},
		{Name: "chickpeas, rinsed", Quantity: 1, Unit: "cup"},
		{Name: "avocado, sliced", Quantity: 0.5, Unit: "large"},
		{Name: "extra-virgin olive oil", Quantity: 1, Unit: "tbsp"},
		{Name: "lemon juice", Quantity: 1, Unit: "tbsp"},
		{Name: "dijon mustard", Quantity: 0.5, Unit: "tsp"},
		{Name: "salt & pepper", Quantity: 0.5, Unit: "tsp each"},
	},
	steps: []string{
		"Whisk olive oil, lemon juice, dijon, salt and pepper to make a light dressing.",
		"Arrange quinoa, greens, tomatoes, cucumber, chickpeas, and avocado in bowls.",
		"Drizzle dressing over the top and toss gently to combine.",
		"Optional: add grilled chicken or tofu for extra protein.",
	},
	nutritionTips: []string{
		"Keep the dressing light to reduce calories.",
		"Include at least 3 colors of vegetables for diverse micronutrients.",
		"Swap quinoa for brown rice or farro as desired.",
	},
}

var makeoverTemplate = recipeTemplate{
	suffix: "(Healthy Version)",
	ingredients: []types.Ingredient{
		{Name: "extra-virgin olive oil", Quantity: 1, Unit: "tbsp"},
		{Name: "lean protein (chicken breast or firm tofu)", Quantity: 8, Unit: "oz"},
		{Name: "assorted vegetables (bell pepper, broccoli, carrots)", Quantity: 3, Unit: "cups"},
		{Name: "whole grain (cooked brown rice or quinoa)", Quantity: 2, Unit: "cups"},
		{Name: "low-sodium soy sauce or tamari", Quantity: 1.5, Unit: "tbsp"},
		{Name: "fresh garlic, minced", Quantity: 2, Unit: "cloves"},
		{Name: "fresh ginger, grated", Quantity: 1, Unit: "tsp"},
		{Name: "sesame seeds (optional)", Quantity: 1, Unit: "tsp"},
	},
	steps: []string{
		"Heat oil in a large skillet over medium-high heat. Add protein and cook until browned and cooked through. Remove and set aside.",
		"Add vegetables to the skillet; stir-fry 4–6 minutes until crisp-tender.",
		"Return protein to the pan with garlic, ginger, and soy/tamari. Toss 1–2 minutes to coat.",
		"Serve over warm whole grains. Garnish with sesame seeds if using.",
	},
	nutritionTips: []string{
		"Aim for half the plate vegetables, quarter protein, quarter whole grains.",
		"Limit added sodium; use citrus and herbs for flavor.",
		"Batch cook grains to save time in future meals.",
	},
}

// FallbackRecipe is the deterministic recipe served without the provider.
// The template is picked from the dish name and scaled from two servings.
func FallbackRecipe(dish string, servings int) types.Recipe {
	dish = strings.TrimSpace(dish)
	if servings <= 0 {
		servings = DefaultServings
	}

	tmpl := makeoverTemplate
	switch normalized := strings.ToLower(dish); {
	case strings.Contains(normalized, "soup"):
		tmpl = soupTemplate
	case strings.Contains(normalized, "bowl"), strings.Contains(normalized, "salad"):
		tmpl = bowlTemplate
	}

	factor := float64(servings) / DefaultServings
	ingredients := make([]types.Ingredient, len(tmpl.ingredients))
	for i, ing := range tmpl.ingredients {
		ing.Quantity = math.Round(ing.Quantity*factor*100) / 100
		ingredients[i] = ing
	}

	return types.Recipe{
		Title:         capitalize(dish) + " " + tmpl.suffix,
		Servings:      servings,
		Ingredients:   ingredients,
		Steps:         append([]string(nil), tmpl.steps...),
		NutritionTips: append([]string(nil), tmpl.nutritionTips...),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
