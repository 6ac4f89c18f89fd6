package cmd

import (
	"context"
	"fmt"

	"github.com/pyae198022/ShopHub/internal/catalog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Fprintf(cmd.OutOrStdout(), "Database %s is up to date.\n", cfg.DBPath)
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample products into an empty catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := openStore(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := seedProducts(cmd.Context(), catalog.NewService(db, nil, nil))
		if err != nil {
			return err
		}
		if n == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "Catalog already has products; nothing seeded.")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d products.\n", n)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
}

func price(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pricePtr(s string) *decimal.Decimal {
	d := price(s)
	return &d
}

var sampleProducts = []catalog.ProductInput{
	{Name: "Wireless Headphones", Description: "Over-ear, 30 hour battery, active noise cancelling.", Price: price("79.99"), OriginalPrice: pricePtr("99.99"), Category: "Electronics", Stock: 25, Tags: []string{"audio", "wireless"}},
	{Name: "Mechanical Keyboard", Description: "Hot-swappable switches with a compact 75% layout.", Price: price("119.00"), Category: "Electronics", Stock: 12, Tags: []string{"keyboard"}},
	{Name: "Cotton Crew T-Shirt", Description: "Heavyweight organic cotton.", Price: price("19.50"), Category: "Clothing", Stock: 80, Tags: []string{"organic", "basics"}},
	{Name: "Running Shoes", Description: "Lightweight trainers for daily miles.", Price: price("64.00"), OriginalPrice: pricePtr("80.00"), Category: "Clothing", Stock: 30, Tags: []string{"sport"}},
	{Name: "Ceramic Pour-Over Set", Description: "Dripper, carafe and 40 filters.", Price: price("34.95"), Category: "Home", Stock: 15, Tags: []string{"coffee", "kitchen"}},
	{Name: "Linen Throw Pillow", Description: "Stonewashed linen cover with feather insert.", Price: price("24.00"), Category: "Home", Stock: 40, Tags: []string{"decor"}},
	{Name: "Stainless Water Bottle", Description: "750ml, keeps drinks cold for 24 hours.", Price: price("18.99"), Category: "Outdoors", Stock: 60, Tags: []string{"hydration"}},
	{Name: "Trail Daypack", Description: "22L pack with hydration sleeve.", Price: price("49.99"), Category: "Outdoors", Stock: 0, Tags: []string{"hiking"}},
}

// seedProducts inserts the sample catalog unless products already exist.
func seedProducts(ctx context.Context, svc *catalog.Service) (int, error) {
	page, err := svc.List(ctx, catalog.Filter{PageSize: 1})
	if err != nil {
		return 0, err
	}
	if page.Total > 0 {
		return 0, nil
	}
	for i, in := range sampleProducts {
		if _, err := svc.Create(ctx, in); err != nil {
			return i, fmt.Errorf("failed to seed %s: %w", in.Name, err)
		}
	}
	return len(sampleProducts), nil
}
