package layer

import (
	"encoding/json"
	"io"

	"github.com/samber/lo"
)

// Record is the serialised form of a Layer
type Record struct {
	Index    int            `json:"index"`
	Z        float64        `json:"z"`
	Vectors  []VectorRecord `json:"vectors"`
	Metadata MetadataRecord `json:"metadata"`
}

// VectorRecord is the serialised form of a ScanVector
type VectorRecord struct {
	Type         VectorType   `json:"type"`
	Points       [][2]float64 `json:"points"`
	Closed       bool         `json:"closed,omitempty"`
	BuildStyleID string       `json:"buildStyleId"`
}

// MetadataRecord is the serialised form of Metadata
type MetadataRecord struct {
	BoundsMin    [2]float64         `json:"boundsMin"`
	BoundsMax    [2]float64         `json:"boundsMax"`
	TotalLength  float64            `json:"totalLength"`
	ExposureTime float64            `json:"exposureTime"`
	JumpLength   float64            `json:"jumpLength"`
	Counts       map[VectorType]int `json:"counts"`
}

// StyleRecord is the serialised form of a BuildStyle
type StyleRecord struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Power             float64 `json:"power"`
	Speed             float64 `json:"speed"`
	SpotSize          float64 `json:"spotSize"`
	Focus             float64 `json:"focus"`
	JumpSpeed         float64 `json:"jumpSpeed"`
	JumpDelay         float64 `json:"jumpDelay"`
	PointDistance     float64 `json:"pointDistance"`
	PointExposureTime float64 `json:"pointExposureTime"`
}

// Record converts the layer for serialisation
func (l *Layer) Record() Record {
	r := Record{
		Index:   l.Index,
		Z:       l.Z,
		Vectors: make([]VectorRecord, len(l.Vectors)),
		Metadata: MetadataRecord{
			TotalLength:  l.Metadata.TotalLength,
			ExposureTime: l.Metadata.ExposureTime,
			JumpLength:   l.Metadata.JumpLength,
			Counts:       l.Metadata.Counts,
		},
	}
	if !l.Metadata.Bounds.IsEmpty() {
		b := l.Metadata.Bounds
		r.Metadata.BoundsMin = [2]float64{b.Min.X, b.Min.Y}
		r.Metadata.BoundsMax = [2]float64{b.Max.X, b.Max.Y}
	}
	for i, v := range l.Vectors {
		vr := VectorRecord{
			Type:   v.Type,
			Points: make([][2]float64, len(v.Points)),
			Closed: v.Closed,
		}
		for j, p := range v.Points {
			vr.Points[j] = [2]float64{p.X, p.Y}
		}
		if v.Style != nil {
			vr.BuildStyleID = v.Style.ID()
		}
		r.Vectors[i] = vr
	}
	return r
}

// Record converts the style for serialisation
func (s *BuildStyle) Record() StyleRecord {
	return StyleRecord{
		ID:                s.id,
		Name:              s.name,
		Power:             s.settings.Power,
		Speed:             s.settings.Speed,
		SpotSize:          s.settings.SpotSize,
		Focus:             s.settings.Focus,
		JumpSpeed:         s.settings.JumpSpeed,
		JumpDelay:         s.settings.JumpDelay,
		PointDistance:     s.settings.PointDistance,
		PointExposureTime: s.settings.PointExposureTime,
	}
}

// Document is a complete build: styles followed by layers in height order
type Document struct {
	Styles []StyleRecord `json:"styles"`
	Layers []Record      `json:"layers"`
}

// NewDocument collects the records of layers and the styles they use
func NewDocument(styles Styles, layers []*Layer) Document {
	doc := Document{Layers: make([]Record, 0, len(layers))}
	used := lo.Uniq(lo.Compact([]*BuildStyle{styles.Contour, styles.Hatch, styles.Support}))
	for _, s := range used {
		doc.Styles = append(doc.Styles, s.Record())
	}
	for _, l := range layers {
		doc.Layers = append(doc.Layers, l.Record())
	}
	return doc
}

// Write encodes the document as indented JSON
func (d Document) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}
