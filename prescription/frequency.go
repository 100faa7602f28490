package prescription

// Frequency is one of the fixed dosing schedules offered on the form
type Frequency string

const (
	OnceDaily       Frequency = "once daily"
	TwiceDaily      Frequency = "twice daily"
	Every4Hours     Frequency = "every 4 hours"
	Every6Hours     Frequency = "every 6 hours"
	Every8Hours     Frequency = "every 8 hours"
	BeforeMeals     Frequency = "before meals"
	BeforeBedtime   Frequency = "before bedtime"
	AsNeededForPain Frequency = "as needed for pain"
)

const defaultMultiplier = 1

// Doses per day for each schedule
var frequencyFactors = map[Frequency]int{
	OnceDaily:       1,
	TwiceDaily:      2,
	Every4Hours:     6,
	Every6Hours:     4,
	Every8Hours:     3,
	BeforeMeals:     3,
	BeforeBedtime:   1,
	AsNeededForPain: 3,
}

// Display order of the selection list
var frequencyOrder = []Frequency{
	OnceDaily,
	TwiceDaily,
	Every4Hours,
	Every6Hours,
	Every8Hours,
	BeforeMeals,
	BeforeBedtime,
	AsNeededForPain,
}

// FrequencyOption is a frequency with its daily multiplier
type FrequencyOption struct {
	Frequency Frequency `json:"frequency"`
	Factor    int       `json:"factor"`
}

// Frequencies returns the enumeration in display order
func Frequencies() []FrequencyOption {
	options := make([]FrequencyOption, len(frequencyOrder))
	for i, f := range frequencyOrder {
		options[i] = FrequencyOption{Frequency: f, Factor: frequencyFactors[f]}
	}
	return options
}

// Valid reports whether f is one of the enumerated frequencies
func (f Frequency) Valid() bool {
	_, ok := frequencyFactors[f]
	return ok
}

// FrequencyFactor returns the daily multiplier of f, 1 for anything unknown
func FrequencyFactor(f Frequency) int {
	if factor, ok := frequencyFactors[f]; ok {
		return factor
	}
	return defaultMultiplier
}

// AutoQuantity is the number of units covering daysSupply days at frequency f
func AutoQuantity(f Frequency, daysSupply int) int {
	return FrequencyFactor(f) * daysSupply
}
