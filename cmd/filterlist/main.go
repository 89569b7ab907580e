package main

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/lazuli-inc/reagentcrawler/filter"
)

func main() {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	_ = v.ReadInConfig()
	v.SetDefault("PROTEIN_LIST", "protein_list.xlsx")
	v.SetDefault("SCRAPE_WORKBOOK", "storage/data/proteins.xlsx")
	v.SetDefault("FILTERED_OUTPUT", "storage/data/filtered_proteins.xlsx")

	symbols := v.GetString("PROTEIN_LIST")
	in := v.GetString("SCRAPE_WORKBOOK")
	out := v.GetString("FILTERED_OUTPUT")

	kept, err := filter.Run(symbols, in, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "filter failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Kept %d rows, written to %s\n", kept, out)
}
