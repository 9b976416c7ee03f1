package seeder

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/vendlabs/vmhistory/internal/models"
)

// Machine states walked by a simulated session.
const (
	StateIdle         = "IDLE"
	StateCoinInserted = "COIN_INSERTED"
	StateItemSelected = "ITEM_SELECTED"
	StateDispensing   = "DISPENSING"
	StateReturnChange = "RETURNING_CHANGE"
	StateOutOfService = "OUT_OF_SERVICE"
)

var denominations = []float64{1, 5, 10, 20}

// Step is one request the seeder will send.
type Step struct {
	Kind    models.EventKind
	Payload map[string]any
}

// Generator produces plausible vending sessions. It is not safe for
// concurrent use.
type Generator struct {
	faker     *gofakeit.Faker
	products  []ProductConfig
	errorRate float64
}

// NewGenerator returns a generator. A zero seed picks a random one.
func NewGenerator(seed int64, products []ProductConfig, errorRate float64) *Generator {
	if len(products) == 0 {
		products = DefaultProducts()
	}
	return &Generator{
		faker:     gofakeit.New(seed),
		products:  products,
		errorRate: errorRate,
	}
}

// Session returns the events for one customer: coins in, selection,
// dispense, change, and back to idle. The balance reported in each state
// transition is the balance after that step.
func (g *Generator) Session() []Step {
	product := g.products[g.faker.Number(0, len(g.products)-1)]
	customer := g.faker.UUID()
	var steps []Step

	balance := 0.0
	prev := StateIdle
	transition := func(next string) {
		steps = append(steps, stateStep(prev, next, balance))
		prev = next
	}

	steps = append(steps, logStep(fmt.Sprintf("session started for %s", product.Name), "info"))

	for balance < product.Price {
		coin := denominations[g.faker.Number(0, len(denominations)-1)]
		balance += coin
		steps = append(steps, logStep(fmt.Sprintf("coin accepted: %.0f", coin), "debug"))
		if prev != StateCoinInserted {
			transition(StateCoinInserted)
		}
	}

	transition(StateItemSelected)

	if g.faker.Float64Range(0, 1) < g.errorRate {
		steps = append(steps, logStep(g.fault(product), "error"))
		transition(StateOutOfService)
		refund := balance
		balance = 0
		steps = append(steps, logStep(fmt.Sprintf("refunded %.2f", refund), "warn"))
		transition(StateIdle)
		return steps
	}

	transition(StateDispensing)
	paid := balance
	change := paid - product.Price
	steps = append(steps, Step{
		Kind: models.KindTransaction,
		Payload: map[string]any{
			"item":          product.Name,
			"slot":          product.Slot,
			"price":         product.Price,
			"paid":          paid,
			"change":        change,
			"paymentMethod": "cash",
			"customerId":    customer,
		},
	})

	balance = change
	if change > 0 {
		transition(StateReturnChange)
		balance = 0
	}
	transition(StateIdle)
	steps = append(steps, logStep("door opened", "info"))

	return steps
}

func (g *Generator) fault(p ProductConfig) string {
	faults := []string{
		"motor jammed at slot %s",
		"coin hopper empty, cannot dispense at slot %s",
		"sensor did not detect drop from slot %s",
	}
	return fmt.Sprintf(faults[g.faker.Number(0, len(faults)-1)], p.Slot)
}

func stateStep(prev, next string, balance float64) Step {
	return Step{
		Kind: models.KindStateTransition,
		Payload: map[string]any{
			"previousState": prev,
			"currentState":  next,
			"balance":       balance,
		},
	}
}

func logStep(message, level string) Step {
	return Step{
		Kind: models.KindLog,
		Payload: map[string]any{
			"message": message,
			"level":   level,
		},
	}
}
