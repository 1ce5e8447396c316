package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/tokensale/internal/engine"
	"github.com/roach88/tokensale/internal/ir"
	"github.com/roach88/tokensale/internal/pricing"
)

// Config is the file and storage form of engine.Params.
type Config struct {
	Owner         string  `yaml:"owner" json:"owner"`
	CreationFee   string  `yaml:"creation_fee" json:"creation_fee"`
	FundingTarget string  `yaml:"funding_target" json:"funding_target"`
	TotalSupply   string  `yaml:"total_supply" json:"total_supply"`
	Curve         Curve   `yaml:"curve" json:"curve"`
	CostPolicy    string  `yaml:"cost_policy" json:"cost_policy"`
	Release       Release `yaml:"release" json:"release"`
	SaleLimit     string  `yaml:"sale_limit,omitempty" json:"sale_limit"`
	MinPurchase   string  `yaml:"min_purchase,omitempty" json:"min_purchase"`
	MaxPurchase   string  `yaml:"max_purchase,omitempty" json:"max_purchase"`
}

// Curve configures the linear pricing curve.
type Curve struct {
	BasePrice string `yaml:"base_price" json:"base_price"`
	Slope     string `yaml:"slope" json:"slope"`
}

// Release configures what Deposit hands back to a creator.
type Release struct {
	Mode    string `yaml:"mode" json:"mode"`
	Reserve string `yaml:"reserve,omitempty" json:"reserve"`
}

// Default returns the reference deployment: fee 0.01, target 3, one
// million units per asset, price 1.0 rising by 0.001 per unit sold.
func Default() Config {
	return Config{
		Owner:         "owner",
		CreationFee:   "0.01",
		FundingTarget: "3",
		TotalSupply:   "1000000",
		Curve:         Curve{BasePrice: "1", Slope: "0.001"},
		CostPolicy:    pricing.PolicyLump,
		Release:       Release{Mode: pricing.ReleaseAll, Reserve: "0"},
		SaleLimit:     "0",
		MinPurchase:   "0",
		MaxPurchase:   "0",
	}
}

// WithDefaults fills every empty field from Default.
func (c Config) WithDefaults() Config {
	d := Default()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Owner, d.Owner)
	fill(&c.CreationFee, d.CreationFee)
	fill(&c.FundingTarget, d.FundingTarget)
	fill(&c.TotalSupply, d.TotalSupply)
	fill(&c.Curve.BasePrice, d.Curve.BasePrice)
	fill(&c.Curve.Slope, d.Curve.Slope)
	fill(&c.CostPolicy, d.CostPolicy)
	fill(&c.Release.Mode, d.Release.Mode)
	fill(&c.Release.Reserve, d.Release.Reserve)
	fill(&c.SaleLimit, d.SaleLimit)
	fill(&c.MinPurchase, d.MinPurchase)
	fill(&c.MaxPurchase, d.MaxPurchase)
	return c
}

// Params converts the configuration into validated engine parameters.
func (c Config) Params() (engine.Params, error) {
	var (
		p   engine.Params
		err error
	)
	if p.Owner, err = ir.ResolveAccount(c.Owner); err != nil {
		return engine.Params{}, fieldError("owner", err)
	}

	amounts := []struct {
		field string
		src   string
		dst   *ir.Amount
	}{
		{"creation_fee", c.CreationFee, &p.CreationFee},
		{"funding_target", c.FundingTarget, &p.FundingTarget},
		{"total_supply", c.TotalSupply, &p.TotalSupply},
		{"sale_limit", c.SaleLimit, &p.SaleLimit},
		{"min_purchase", c.MinPurchase, &p.MinPurchase},
		{"max_purchase", c.MaxPurchase, &p.MaxPurchase},
	}
	for _, a := range amounts {
		if *a.dst, err = parseUnits(a.src); err != nil {
			return engine.Params{}, fieldError(a.field, err)
		}
	}

	base, err := parseUnits(c.Curve.BasePrice)
	if err != nil {
		return engine.Params{}, fieldError("curve.base_price", err)
	}
	slope, err := parseUnits(c.Curve.Slope)
	if err != nil {
		return engine.Params{}, fieldError("curve.slope", err)
	}
	p.Curve = pricing.Linear{Base: base, Slope: slope}

	if p.Cost, err = pricing.ParseCostPolicy(c.CostPolicy); err != nil {
		return engine.Params{}, fieldError("cost_policy", err)
	}

	reserve, err := parseUnits(c.Release.Reserve)
	if err != nil {
		return engine.Params{}, fieldError("release.reserve", err)
	}
	if p.Release, err = pricing.ParseReleasePolicy(c.Release.Mode, reserve); err != nil {
		return engine.Params{}, fieldError("release", err)
	}

	if err := p.Validate(); err != nil {
		return engine.Params{}, err
	}
	return p, nil
}

// parseUnits treats an empty string as zero so optional fields may be
// omitted.
func parseUnits(s string) (ir.Amount, error) {
	if s == "" {
		return ir.ZeroAmount(), nil
	}
	return ir.ParseUnits(s)
}

func fieldError(field string, err error) error {
	return fmt.Errorf("config: %s: %w", field, err)
}

// Marshal encodes the configuration for storage.
func (c Config) Marshal() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("config: marshal: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a stored configuration. Unknown fields are rejected so
// a database written by a newer binary is not silently misread.
func Unmarshal(data []byte) (Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var c Config
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	return c.WithDefaults(), nil
}
