// Package catalog loads the product list a kiosk offers: each product's
// colourways and its size table.
package catalog

import (
	"errors"
	"fmt"
	"os"

	"github.com/andresmejia3/facefit/internal/vision"
	"gopkg.in/yaml.v3"
)

// ErrUnknownProduct is returned by Product for an id that is not listed.
var ErrUnknownProduct = errors.New("catalog: unknown product")

type colourwayFile struct {
	ID        string  `yaml:"id"`
	Name      string  `yaml:"name"`
	Hex       string  `yaml:"hex"`
	Metalness float64 `yaml:"metalness"`
	Roughness float64 `yaml:"roughness"`
}

type productFile struct {
	ID         string           `yaml:"id"`
	Name       string           `yaml:"name"`
	Colourways []colourwayFile  `yaml:"colourways"`
	Sizes      vision.SizeTable `yaml:"sizes"`
}

type catalogFile struct {
	Products []productFile `yaml:"products"`
}

// Product is one frame model.
type Product struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Colourways []vision.Colourway `json:"colourways"`
	Sizes      vision.SizeTable   `json:"sizes"`
}

// Catalog is an ordered, validated product list.
type Catalog struct {
	Products []Product
	byID     map[string]int
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse decodes and validates catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	products := make([]Product, 0, len(f.Products))
	for _, pf := range f.Products {
		p, err := pf.product()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return New(products)
}

func (pf productFile) product() (Product, error) {
	p := Product{ID: pf.ID, Name: pf.Name, Sizes: pf.Sizes}
	for _, cf := range pf.Colourways {
		cw, err := vision.NewColourway(cf.ID, cf.Name, cf.Hex, cf.Metalness, cf.Roughness)
		if err != nil {
			return Product{}, fmt.Errorf("product %q: %w", pf.ID, err)
		}
		p.Colourways = append(p.Colourways, cw)
	}
	if p.Sizes == nil {
		p.Sizes = vision.SizeTable{}
	}
	return p, nil
}

// New validates products and indexes them by id.
func New(products []Product) (*Catalog, error) {
	c := &Catalog{Products: products, byID: make(map[string]int, len(products))}
	for i, p := range products {
		if err := validate(p); err != nil {
			return nil, err
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

func validate(p Product) error {
	if p.ID == "" {
		return errors.New("product id is required")
	}
	if p.Name == "" {
		return fmt.Errorf("product %q: name is required", p.ID)
	}

	seen := make(map[string]bool, len(p.Colourways))
	for _, cw := range p.Colourways {
		if seen[cw.ID] {
			return fmt.Errorf("product %q: duplicate colourway id %q", p.ID, cw.ID)
		}
		seen[cw.ID] = true
	}

	for key, s := range p.Sizes {
		if key == "" {
			return fmt.Errorf("product %q: empty size key", p.ID)
		}
		if s.LensWidth <= 0 || s.Bridge <= 0 || s.TempleLength <= 0 {
			return fmt.Errorf("product %q: size %q must have positive dimensions", p.ID, key)
		}
	}
	return nil
}

// Product looks a product up by id.
func (c *Catalog) Product(id string) (Product, error) {
	i, ok := c.byID[id]
	if !ok {
		return Product{}, fmt.Errorf("%w: %q", ErrUnknownProduct, id)
	}
	return c.Products[i], nil
}
