package main

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/Pesokrava/product_catalog/internal/cli"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
