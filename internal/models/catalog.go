package models

import "github.com/conveyor-designer/backend/internal/geom"

// Catalog is the palette of placeable items, loaded from YAML.
type Catalog struct {
	Version  string        `json:"version" yaml:"version"`
	Currency string        `json:"currency" yaml:"currency"`
	Items    []CatalogItem `json:"items" yaml:"items"`
}

// CatalogItem describes one placeable part. Category names the slot type
// it mounts to; ModelReference points at the display mesh under the assets
// dir and OriginalReference at the vendor CAD file, both optional.
type CatalogItem struct {
	ID                string     `json:"id" yaml:"id"`
	Name              string     `json:"name" yaml:"name"`
	Category          string     `json:"category" yaml:"category"`
	ModelReference    string     `json:"modelReference,omitempty" yaml:"model_reference,omitempty"`
	OriginalReference string     `json:"originalReference,omitempty" yaml:"original_reference,omitempty"`
	BoundingBox       *Box       `json:"boundingBox,omitempty" yaml:"bounding_box,omitempty"`
	Center            *geom.Vec3 `json:"center,omitempty" yaml:"center,omitempty"`
	UnitPrice         float64    `json:"unitPrice" yaml:"unit_price"`
}

// Payload builds the drag payload the frontend serializes when the item
// leaves the palette, with defaults already filled.
func (i CatalogItem) Payload() DragPayload {
	p := DragPayload{
		ID:                i.ID,
		Name:              i.Name,
		Category:          i.Category,
		ModelReference:    i.ModelReference,
		OriginalReference: i.OriginalReference,
		BoundingBox:       i.BoundingBox,
		Center:            i.Center,
	}
	p.fillDefaults()
	return p
}

// ItemByID looks an item up by its catalog id.
func (c *Catalog) ItemByID(id string) (CatalogItem, bool) {
	for _, item := range c.Items {
		if item.ID == id {
			return item, true
		}
	}
	return CatalogItem{}, false
}

// BOMLine is one aggregated bill-of-materials row.
type BOMLine struct {
	CatalogID string  `json:"catalogId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
	LineTotal float64 `json:"lineTotal"`
}

// BOMSummary is the aggregated bill of materials for a project.
type BOMSummary struct {
	Lines    []BOMLine `json:"lines"`
	Total    float64   `json:"total"`
	Currency string    `json:"currency"`
}

// ComponentTally is one catalog-id aggregation row, as produced by the
// project store's grouping query or by an in-memory count.
type ComponentTally struct {
	CatalogID string `json:"catalogId"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
}

// BuildBOM aggregates placed components into bill-of-materials lines,
// priced against the catalog. Lines keep first-placement order.
func BuildBOM(components []PlacedComponent, catalog *Catalog) BOMSummary {
	var tallies []ComponentTally
	index := make(map[string]int)

	for _, c := range components {
		i, ok := index[c.CatalogID]
		if !ok {
			index[c.CatalogID] = len(tallies)
			tallies = append(tallies, ComponentTally{CatalogID: c.CatalogID, Name: c.Name})
			i = index[c.CatalogID]
		}
		tallies[i].Quantity++
	}
	return PriceTallies(tallies, catalog)
}

// PriceTallies turns pre-aggregated component tallies into a priced bill
// of materials. Tallies whose catalog id is no longer in the catalog are
// listed at price zero rather than dropped.
func PriceTallies(tallies []ComponentTally, catalog *Catalog) BOMSummary {
	summary := BOMSummary{
		Lines:    make([]BOMLine, 0, len(tallies)),
		Currency: catalog.Currency,
	}
	for _, tl := range tallies {
		line := BOMLine{CatalogID: tl.CatalogID, Name: tl.Name, Quantity: tl.Quantity}
		if item, found := catalog.ItemByID(tl.CatalogID); found {
			line.Name = item.Name
			line.UnitPrice = item.UnitPrice
		}
		line.LineTotal = float64(line.Quantity) * line.UnitPrice
		summary.Total += line.LineTotal
		summary.Lines = append(summary.Lines, line)
	}
	return summary
}
