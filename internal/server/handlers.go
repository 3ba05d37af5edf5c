package server

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meal-menu-service/internal/calendar"
	"meal-menu-service/internal/ledger"
	"meal-menu-service/internal/match"
	"meal-menu-service/internal/metrics"
	"meal-menu-service/internal/recipe"
	"meal-menu-service/internal/selection"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// purchaseEvent is the payload the payment processor's webhook relay sends
// after a completed checkout.
type purchaseEvent struct {
	EventID       string `json:"event_id"`
	CustomerEmail string `json:"customer_email" binding:"required"`
	DietType      string `json:"diet_type" binding:"required"`
	Period        string `json:"period"`
}

// handlePurchaseWebhook is the sole trigger of a selection: it picks the
// month's recipes, records them in the ledger, and returns the distributed
// calendar. Delivery is at-least-once; redelivered events are answered from
// the ledger.
func (s *Server) handlePurchaseWebhook(c *gin.Context) {
	if s.cfg.Webhook.Secret != "" {
		provided := c.GetHeader("X-Webhook-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(s.cfg.Webhook.Secret)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid webhook secret"})
			return
		}
	}

	var event purchaseEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	period := ledger.PeriodOf(time.Now())
	if event.Period != "" {
		var err error
		if period, err = ledger.ParsePeriod(event.Period); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	ctx := c.Request.Context()

	// A period's plan is computed once. Redeliveries and repeat purchases
	// within the same period are answered from the ledger, so idempotency
	// holds even when redis is down.
	if record, err := s.ledger.Record(ctx, event.CustomerEmail, period); err == nil && record != nil {
		s.logger.Info("plan already exists, answering from ledger",
			zap.String("event_id", event.EventID),
			zap.String("customer", event.CustomerEmail),
			zap.String("period", string(period)),
		)
		s.respondWithPlan(c, record.CustomerID, record.Period, record.RecipeIDs, true)
		return
	}

	// The redis claim spots concurrent deliveries racing before any record
	// lands. Reprocessing the loser is safe because Track upserts.
	if !s.idem.Claim(ctx, event.EventID) {
		s.logger.Info("duplicate webhook delivery with no ledger record yet, reprocessing",
			zap.String("event_id", event.EventID),
			zap.String("customer", event.CustomerEmail),
		)
	}

	start := time.Now()
	result, err := s.engine.SelectForCustomer(ctx, selection.Request{
		CustomerID:           event.CustomerEmail,
		DietType:             event.DietType,
		Period:               period,
		TotalRecipes:         s.cfg.Selection.TotalRecipes,
		NewRecipesPercentage: s.cfg.Selection.NewRecipesPercentage,
		Servings:             s.cfg.Selection.Servings,
	})
	if err != nil {
		if errors.Is(err, selection.ErrInvalidRequest) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// 502 tells the sender to redeliver; the purchase flow falls back
		// to a non-personalized default plan in the meantime.
		s.logger.Error("selection failed", zap.String("customer", event.CustomerEmail), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "selection unavailable"})
		return
	}

	recipeIDs := make([]string, len(result.Recipes))
	for i, rec := range result.Recipes {
		recipeIDs[i] = rec.ID
	}

	if err := s.ledger.Track(ctx, event.CustomerEmail, recipeIDs, period); err != nil {
		s.logger.Error("failed to track selection", zap.String("customer", event.CustomerEmail), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "tracking unavailable"})
		return
	}

	if err := s.metrics.Record(ctx, s.metricFor(event, period, result, time.Since(start))); err != nil {
		s.logger.Warn("failed to record selection metric", zap.Error(err))
	}

	s.respondWithPlan(c, event.CustomerEmail, period, recipeIDs, false)
}

func (s *Server) metricFor(event purchaseEvent, period ledger.Period, result *selection.Result, latency time.Duration) metrics.SelectionMetric {
	return metrics.SelectionMetric{
		CustomerID:         event.CustomerEmail,
		Period:             string(period),
		DietType:           event.DietType,
		LibraryCount:       result.LibraryCount,
		NewCount:           result.NewCount,
		GenerationFailures: result.GenerationFailures,
		LibraryShortfall:   result.LibraryShortfall,
		LatencyMS:          latency.Milliseconds(),
	}
}

// respondWithPlan distributes the recipe ids over the period's calendar and
// renders the response with hydrated recipe names.
func (s *Server) respondWithPlan(c *gin.Context, customerID string, period ledger.Period, recipeIDs []string, replayed bool) {
	t := period.Time()
	days := calendar.DaysIn(t.Year(), t.Month())

	plan, err := calendar.Distribute(recipeIDs, days, s.mealTypes)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	recipes, err := s.store.GetByIDs(c.Request.Context(), recipeIDs)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "recipe store unavailable"})
		return
	}
	names := make(map[string]string, len(recipes))
	for _, rec := range recipes {
		names[rec.ID] = rec.Name
	}

	type mealView struct {
		RecipeID string `json:"recipe_id"`
		Name     string `json:"name"`
	}
	dayViews := make([]map[string]any, plan.DaysInMonth)
	for day := 1; day <= plan.DaysInMonth; day++ {
		meals := make(map[string]mealView, len(s.mealTypes))
		for _, mt := range s.mealTypes {
			id, _ := plan.RecipeFor(day, mt)
			meals[string(mt)] = mealView{RecipeID: id, Name: names[id]}
		}
		dayViews[day-1] = map[string]any{"day": day, "meals": meals}
	}

	c.JSON(http.StatusOK, gin.H{
		"customer_id": customerID,
		"period":      period,
		"recipe_ids":  recipeIDs,
		"days":        dayViews,
		"replayed":    replayed,
	})
}

// handleGetCalendar rebuilds a customer's calendar for a period from the
// ledger record. Distribution is deterministic, so this always matches what
// the webhook returned.
func (s *Server) handleGetCalendar(c *gin.Context) {
	period, err := ledger.ParsePeriod(c.Param("period"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	customerID := c.Param("customer")
	record, err := s.ledger.Record(c.Request.Context(), customerID, period)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "ledger unavailable"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no plan for this customer and period"})
		return
	}

	s.respondWithPlan(c, customerID, period, record.RecipeIDs, false)
}

// handleResolveRecipe resolves a denormalized recipe name against a diet's
// pool. An unresolved name is reported as such rather than guessing.
func (s *Server) handleResolveRecipe(c *gin.Context) {
	name := c.Query("name")
	diet := c.Query("diet")
	if name == "" || diet == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name and diet query parameters are required"})
		return
	}

	pool, err := s.store.ListByDiet(c.Request.Context(), diet)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "recipe store unavailable"})
		return
	}

	result := s.resolver.Resolve(name, pool)
	if result.Quality == match.QualityNone {
		c.JSON(http.StatusNotFound, result)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleGetRecipe(c *gin.Context) {
	rec, err := s.store.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "recipe store unavailable"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "recipe not found"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) handleAdminLogin(c *gin.Context) {
	var body struct {
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if s.cfg.Admin.Password == "" ||
		subtle.ConstantTimeCompare([]byte(body.Password), []byte(s.cfg.Admin.Password)) != 1 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := s.issuer.Issue("admin")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *Server) handleAdminImport(c *gin.Context) {
	var body struct {
		URL      string `json:"url" binding:"required"`
		DietType string `json:"diet_type" binding:"required"`
		MealType string `json:"meal_type"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	mealType := recipe.MealType(body.MealType)
	if mealType == "" {
		mealType = recipe.MealDinner
	}

	rec, err := s.importer.ImportURL(c.Request.Context(), body.URL, body.DietType, mealType)
	if err != nil {
		s.logger.Error("import failed", zap.String("url", body.URL), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "import failed"})
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) handleMetricsSummary(c *gin.Context) {
	hours := 24 * 30
	if raw := c.Query("since_hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since_hours must be a positive integer"})
			return
		}
		hours = parsed
	}

	summary, err := s.metrics.Summarize(c.Request.Context(), time.Now().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "metrics unavailable"})
		return
	}
	c.JSON(http.StatusOK, summary)
}
