package core

// ContentRef identifies the content asset spawned for a marker.
type ContentRef struct {
	ID string `json:"id" mapstructure:"id"`
	// DefaultRotation is the authored orientation kept when rotation is
	// preserved. Stored as w,x,y,z; all zero means identity.
	DefaultRotation [4]float32 `json:"defaultRotation" mapstructure:"defaultRotation"`
}

// Empty reports whether the reference names no asset.
func (r ContentRef) Empty() bool {
	return r.ID == ""
}

// AudioRef identifies a narration clip.
type AudioRef struct {
	ID  string `json:"id" mapstructure:"id"`
	URI string `json:"uri,omitempty" mapstructure:"uri"`
}

// MapLocation is the real-world location of a tourist spot.
type MapLocation struct {
	Lat     float64 `json:"lat" mapstructure:"lat"`
	Lon     float64 `json:"lon" mapstructure:"lon"`
	Address string  `json:"address,omitempty" mapstructure:"address"`
	PlaceID string  `json:"placeId,omitempty" mapstructure:"placeId"`
}

// MarkerDescriptor is the static description of what to show for a marker.
type MarkerDescriptor struct {
	Name        string       `json:"name" mapstructure:"name"`
	Content     ContentRef   `json:"content" mapstructure:"content"`
	Title       string       `json:"title" mapstructure:"title"`
	Description string       `json:"description" mapstructure:"description"`
	Audio       *AudioRef    `json:"audio,omitempty" mapstructure:"audio"`
	Map         *MapLocation `json:"map,omitempty" mapstructure:"map"`
	WebsiteURL  string       `json:"websiteUrl,omitempty" mapstructure:"websiteUrl"`

	// Display details shown on the expanded info panel.
	Address          string `json:"address,omitempty" mapstructure:"address"`
	Classification   string `json:"classification,omitempty" mapstructure:"classification"`
	OperationalHours string `json:"operationalHours,omitempty" mapstructure:"operationalHours"`
	EnvironmentalFee string `json:"environmentalFee,omitempty" mapstructure:"environmentalFee"`
	Transportation   string `json:"transportation,omitempty" mapstructure:"transportation"`
	Image            string `json:"image,omitempty" mapstructure:"image"`
}

// Details returns the optional display fields in panel order, skipping blanks.
func (d MarkerDescriptor) Details() []Detail {
	all := []Detail{
		{Label: "Address", Value: d.address()},
		{Label: "Classification", Value: d.Classification},
		{Label: "Operational hours", Value: d.OperationalHours},
		{Label: "Environmental fee", Value: d.EnvironmentalFee},
		{Label: "Transportation", Value: d.Transportation},
	}
	out := all[:0]
	for _, det := range all {
		if det.Value != "" {
			out = append(out, det)
		}
	}
	return out
}

func (d MarkerDescriptor) address() string {
	if d.Address != "" {
		return d.Address
	}
	if d.Map != nil {
		return d.Map.Address
	}
	return ""
}

// Detail is a labelled line on the info panel.
type Detail struct {
	Label string `json:"label"`
	Value string `json:"value"`
}
