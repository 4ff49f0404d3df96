package ranking

import (
	"sort"

	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/intent"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/retrieval"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/storage/models"
	"github.com/souroshsepehri/zimmer-chatbot-sub000/internal/text"
)

// RankedAnswer is a candidate after intent fusion. Ordering over a ranked
// list is total and deterministic: FinalScore descending, then Priority
// descending, then FAQ id ascending.
type RankedAnswer struct {
	FAQ         *models.FAQRecord
	FinalScore  float64
	Retrieval   float64
	IntentBonus float64
	IntentMatch bool
}

type Config struct {
	RetrievalWeight float64
	IntentWeight    float64
}

type Ranker struct {
	cfg Config
}

func NewRanker(cfg Config) *Ranker {
	return &Ranker{cfg: cfg}
}

// Rank fuses retrieval scores with the intent signal. The intent bonus is the
// classifier confidence when the FAQ's category maps to the detected label,
// zero otherwise.
func (r *Ranker) Rank(candidates []retrieval.Candidate, res intent.Result) []RankedAnswer {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]RankedAnswer, 0, len(candidates))
	for _, c := range candidates {
		bonus := 0.0
		match := CategoryLabel(c.FAQ.Category) == res.Label
		if match {
			bonus = res.Confidence
		}

		ranked = append(ranked, RankedAnswer{
			FAQ:         c.FAQ,
			FinalScore:  r.cfg.RetrievalWeight*c.Combined + r.cfg.IntentWeight*bonus,
			Retrieval:   c.Combined,
			IntentBonus: bonus,
			IntentMatch: match,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		if ranked[i].FAQ.Priority != ranked[j].FAQ.Priority {
			return ranked[i].FAQ.Priority > ranked[j].FAQ.Priority
		}
		return ranked[i].FAQ.ID < ranked[j].FAQ.ID
	})

	return ranked
}

// categoryAliases maps stored FAQ categories (Persian or English, as the
// ingestion side writes them) onto taxonomy labels. A category equal to a
// label name maps to itself.
var categoryAliases = map[string]intent.Label{
	"سفارش":     intent.LabelOrder,
	"سفارشات":   intent.LabelOrder,
	"خرید":      intent.LabelOrder,
	"orders":    intent.LabelOrder,
	"قیمت":      intent.LabelPricing,
	"تعرفه":     intent.LabelPricing,
	"prices":    intent.LabelPricing,
	"گارانتی":   intent.LabelWarranty,
	"ضمانت":     intent.LabelWarranty,
	"پشتیبانی":  intent.LabelSupport,
	"مشکلات":    intent.LabelSupport,
	"ساعات کاری": intent.LabelHours,
	"ساعت کاری": intent.LabelHours,
	"تماس":      intent.LabelContact,
	"ارتباط":    intent.LabelContact,
	"محصولات":   intent.LabelProductInfo,
	"محصول":     intent.LabelProductInfo,
	"products":  intent.LabelProductInfo,
	"شکایات":    intent.LabelComplaint,
	"شکایت":     intent.LabelComplaint,
	"عمومی":     intent.LabelGeneralQuestion,
	"general":   intent.LabelGeneralQuestion,
}

// CategoryLabel maps a FAQ category onto the intent taxonomy. Unknown
// categories map to general_question so they never accidentally collect an
// intent bonus for a specific label.
func CategoryLabel(category string) intent.Label {
	norm := text.Normalize(category)
	if norm == "" {
		return intent.LabelGeneralQuestion
	}
	if l, ok := categoryAliases[norm]; ok {
		return l
	}
	if l := intent.Label(norm); l.Valid() {
		return l
	}
	return intent.LabelGeneralQuestion
}
