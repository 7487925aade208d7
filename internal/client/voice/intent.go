package voice

// Intent is a recognized user goal.
type Intent string

const (
	IntentWeather        Intent = "weather"
	IntentRecommendation Intent = "recommendation"
	IntentPest           Intent = "pest"
	IntentFertilizer     Intent = "fertilizer"
	IntentMarket         Intent = "market"
	IntentIrrigation     Intent = "irrigation"
	IntentSoil           Intent = "soil"
	IntentHelp           Intent = "help"
)

// Intents lists every intent in dictionary order.
var Intents = []Intent{
	IntentWeather,
	IntentRecommendation,
	IntentPest,
	IntentFertilizer,
	IntentMarket,
	IntentIrrigation,
	IntentSoil,
	IntentHelp,
}

func (i Intent) Valid() bool {
	for _, v := range Intents {
		if v == i {
			return true
		}
	}
	return false
}

// View is the screen the UI opens for the intent.
func (i Intent) View() string {
	switch i {
	case IntentRecommendation:
		return "recommendations"
	case IntentPest:
		return "pests"
	case IntentMarket:
		return "market"
	default:
		return string(i)
	}
}
