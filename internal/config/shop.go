package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// ShopItem is one entry of a shop catalog: an item the shop buys, and the
// units of shop currency it pays per item. ItemID is 0 when the catalog
// doesn't carry one (matching happens by name in that case).
type ShopItem struct {
	ItemName string `json:"item_name"`
	ItemID   int32  `json:"item_id,omitempty"`
	Value    int64  `json:"value"`
}

// ShopConfig is one shop's catalog. Currency labels which composite
// sub-resource the shop yields ("Blood Shards", "Blood Synthesis Tokens").
// Read-only for the lifetime of a session.
type ShopConfig struct {
	ShopName string     `json:"shop_name"`
	Currency string     `json:"currency"`
	Items    []ShopItem `json:"items"`
}

// LoadShop reads and validates one shop catalog from a JSON document.
func LoadShop(path string) (*ShopConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read shop config: %w", err)
	}
	var shop ShopConfig
	if err := json.Unmarshal(data, &shop); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := shop.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &shop, nil
}

// LoadShops loads every configured shop catalog, preserving file order.
func LoadShops(paths []string) ([]ShopConfig, error) {
	shops := make([]ShopConfig, 0, len(paths))
	for _, p := range paths {
		shop, err := LoadShop(p)
		if err != nil {
			return nil, err
		}
		shops = append(shops, *shop)
	}
	return shops, nil
}

// Validate checks required fields and positive item values.
func (s *ShopConfig) Validate() error {
	if s.ShopName == "" {
		return fmt.Errorf("shop_name cannot be empty")
	}
	if s.Currency == "" {
		return fmt.Errorf("currency cannot be empty")
	}
	if len(s.Items) == 0 {
		return fmt.Errorf("shop %q has no items", s.ShopName)
	}
	for i, item := range s.Items {
		if item.ItemName == "" {
			return fmt.Errorf("shop %q item %d: item_name cannot be empty", s.ShopName, i)
		}
		if item.Value <= 0 {
			return fmt.Errorf("shop %q item %q: value must be positive", s.ShopName, item.ItemName)
		}
	}
	return nil
}
