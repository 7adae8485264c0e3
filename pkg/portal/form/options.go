package form

// Option is one entry of a select input.
type Option struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

// Options are the choices offered by the select inputs.
type Options struct {
	Branches     []Option `yaml:"branches" json:"branches"`
	Domains      []Option `yaml:"domains" json:"domains"`
	Genders      []Option `yaml:"genders" json:"genders"`
	ScholarTypes []Option `yaml:"scholar_types" json:"scholar_types"`
}

func plain(values ...string) []Option {
	opts := make([]Option, len(values))
	for i, v := range values {
		opts[i] = Option{Value: v, Label: v}
	}
	return opts
}

// DefaultOptions returns the choices used for The Turing Test 25.
func DefaultOptions() Options {
	return Options{
		Branches: plain("CSIT", "CSE", "CSE(AIML)", "CSE(DS)", "CSE(HINDI)", "IT", "EN", "CIVIL", "MECHANICAL", "AIML", "ECE", "CS"),
		Domains:  plain("Machine Learning", "Web Developer", "Designer"),
		Genders: []Option{
			{Value: "male", Label: "Male"},
			{Value: "female", Label: "Female"},
			{Value: "other", Label: "Other"},
		},
		ScholarTypes: []Option{
			{Value: "day", Label: "Day Scholar"},
			{Value: "hostel", Label: "Hosteller"},
		},
	}
}

// WithDefaults fills any empty list from DefaultOptions.
func (o Options) WithDefaults() Options {
	def := DefaultOptions()
	if len(o.Branches) == 0 {
		o.Branches = def.Branches
	}
	if len(o.Domains) == 0 {
		o.Domains = def.Domains
	}
	if len(o.Genders) == 0 {
		o.Genders = def.Genders
	}
	if len(o.ScholarTypes) == 0 {
		o.ScholarTypes = def.ScholarTypes
	}
	return o
}
