package intent

// Label is the closed intent taxonomy. Classifier output outside this set is
// coerced to LabelGeneralQuestion.
type Label string

const (
	LabelGreeting        Label = "greeting"
	LabelPricing         Label = "pricing"
	LabelWarranty        Label = "warranty"
	LabelOrder           Label = "order"
	LabelSupport         Label = "support"
	LabelHours           Label = "hours"
	LabelContact         Label = "contact"
	LabelProductInfo     Label = "product_info"
	LabelComplaint       Label = "complaint"
	LabelGeneralQuestion Label = "general_question"
	LabelOutOfScope      Label = "out_of_scope"
)

var All = []Label{
	LabelGreeting,
	LabelPricing,
	LabelWarranty,
	LabelOrder,
	LabelSupport,
	LabelHours,
	LabelContact,
	LabelProductInfo,
	LabelComplaint,
	LabelGeneralQuestion,
	LabelOutOfScope,
}

func (l Label) Valid() bool {
	for _, v := range All {
		if l == v {
			return true
		}
	}
	return false
}

func (l Label) String() string {
	return string(l)
}

// triggers are the deterministic keyword signals per label, normalized the
// same way message tokens are. They drive both the confidence boost on top of
// model output and the pure-keyword fallback tier.
var triggers = map[Label][]string{
	LabelGreeting:    {"سلام", "درود", "hello", "hi", "hey"},
	LabelPricing:     {"قیمت", "هزینه", "تعرفه", "تخفیف", "price", "cost", "pricing"},
	LabelWarranty:    {"گارانتی", "ضمانت", "warranty", "guarantee"},
	LabelOrder:       {"سفارش", "خرید", "ارسال", "مرسوله", "order", "buy", "purchase", "shipping", "delivery"},
	LabelSupport:     {"پشتیبانی", "مشکل", "خطا", "کمک", "support", "help", "problem", "issue", "error"},
	LabelHours:       {"ساعت", "ساعات", "باز", "تعطیل", "hours", "open", "closed"},
	LabelContact:     {"تماس", "شماره", "آدرس", "ایمیل", "contact", "phone", "address", "email"},
	LabelProductInfo: {"محصول", "مشخصات", "موجودی", "کالا", "product", "spec", "stock", "available"},
	LabelComplaint:   {"شکایت", "نارضایتی", "ناراضی", "complaint", "refund", "unhappy"},
}

// greetingPhrases are exact normalized messages treated as certain greetings.
var greetingPhrases = map[string]struct{}{
	"سلام":       {},
	"درود":       {},
	"سلام خوبی":  {},
	"hello":      {},
	"hi":         {},
	"hey":        {},
	"good morning": {},
}

func labelStrings() []string {
	out := make([]string, len(All))
	for i, l := range All {
		out[i] = string(l)
	}
	return out
}
