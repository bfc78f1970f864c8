package textgen

import "context"

// Kind selects what the generator should produce.
type Kind string

const (
	KindSMS    Kind = "sms"
	KindAdCopy Kind = "ad_copy"
)

// Context is the prompt material for one generation call.
type Context struct {
	RestaurantName string
	Offer          string
	OfferCode      string
}

// Generator produces marketing copy. Callers must treat a failure as
// "use the literal default template", never as a reason to abort.
type Generator interface {
	Generate(ctx context.Context, kind Kind, gc Context) (string, error)
}

// StaticGenerator returns canned copy. It stands in for the LLM-backed
// service, which this engine only knows as a pure (context) -> text call.
type StaticGenerator struct{}

func (StaticGenerator) Generate(_ context.Context, kind Kind, gc Context) (string, error) {
	if kind == KindAdCopy {
		return "Craving something great? " + gc.RestaurantName + " has {offer} waiting for you.", nil
	}
	return "Hey {name}, it's been a while! {restaurant} is treating you: {offer}. Code {code}.", nil
}
