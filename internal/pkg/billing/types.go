package billing

// Thin views over Stripe webhook payloads. Only the fields the reconciler
// reads are decoded; everything else in event.Data.Raw is ignored so API
// version drift on unrelated fields can't break dispatch.

type checkoutSession struct {
	ID              string            `json:"id"`
	Mode            string            `json:"mode"`
	Customer        string            `json:"customer"`
	Subscription    string            `json:"subscription"`
	CustomerEmail   string            `json:"customer_email"`
	CustomerDetails customerDetails   `json:"customer_details"`
	Metadata        map[string]string `json:"metadata"`
	ExpiresAt       int64             `json:"expires_at"`
	LineItems       struct {
		Data []struct {
			Description string `json:"description"`
		} `json:"data"`
	} `json:"line_items"`
}

type customerDetails struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// email returns the buyer address, preferring the top-level field and
// falling back to customer_details the way Stripe populates hosted checkout.
func (s checkoutSession) email() string {
	if s.CustomerEmail != "" {
		return s.CustomerEmail
	}
	return s.CustomerDetails.Email
}

// planName extracts a plan hint from the session, empty when it carries none.
func (s checkoutSession) planName() string {
	if p := s.Metadata["plan"]; p != "" {
		return p
	}
	for _, item := range s.LineItems.Data {
		if item.Description != "" {
			return item.Description
		}
	}
	return ""
}

type subscriptionPayload struct {
	ID                string `json:"id"`
	Customer          string `json:"customer"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	CurrentPeriodEnd  int64  `json:"current_period_end"`
	Items             struct {
		Data []struct {
			Price struct {
				ID       string            `json:"id"`
				Nickname string            `json:"nickname"`
				Metadata map[string]string `json:"metadata"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
	Metadata map[string]string `json:"metadata"`
}

// planName extracts a plan hint from the subscription payload, empty when
// the payload carries none.
func (s subscriptionPayload) planName() string {
	if p := s.Metadata["plan"]; p != "" {
		return p
	}
	for _, item := range s.Items.Data {
		if p := item.Price.Metadata["plan"]; p != "" {
			return p
		}
		if item.Price.Nickname != "" {
			return item.Price.Nickname
		}
	}
	return ""
}

type invoicePayload struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Subscription       string `json:"subscription"`
	NextPaymentAttempt int64  `json:"next_payment_attempt"`
	AttemptCount       int64  `json:"attempt_count"`
}
