package config_test

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/robert-malhotra/cci-stac-tools/internal/config"
)

func ExampleLoad() {
	// Set required environment variable
	os.Setenv("CATALOGUE_BASE_URL", "https://stac.example.com")
	defer os.Unsetenv("CATALOGUE_BASE_URL")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Catalogue: %s\n", cfg.Catalogue.BaseURL)
	fmt.Printf("Timeout: %s\n", cfg.Catalogue.Timeout)
	fmt.Printf("DAP: %s\n", cfg.CEDA.DAPURL)
	fmt.Printf("Preview: %s\n", cfg.Preview.Address())

	// Output:
	// Catalogue: https://stac.example.com
	// Timeout: 3m0s
	// DAP: https://dap.ceda.ac.uk
	// Preview: 0.0.0.0:8080
}

func ExampleSplitter_Match() {
	splitter, err := config.ParseSplitter([]byte(`
LST-DAY: [LST, day]
LST-NIGHT: [LST, night]
`))
	if err != nil {
		log.Fatal(err)
	}

	stem, label, ok := splitter.Match("ESACCI-LST-NIGHT-20100101-fv1.0")
	fmt.Println(stem, label, ok)

	// Output:
	// ESACCI-LST-20100101-fv1.0 night true
}

func ExampleParseBatch() {
	entries, err := config.ParseBatch(strings.NewReader(`
# directory, drs, splitter
/neodc/esacci/biomass/data/agb/maps/v4.0/geotiff
/neodc/esacci/land_cover/data,esacci.LC.yr.L4.MAP.multi-sensor.multi-platform.MERGED.v2-0-7.r1,landcover
`))
	if err != nil {
		log.Fatal(err)
	}

	for _, e := range entries {
		fmt.Printf("%s [%s] [%s]\n", e.Directory, e.DRS, e.Splitter)
	}

	// Output:
	// /neodc/esacci/biomass/data/agb/maps/v4.0/geotiff [] []
	// /neodc/esacci/land_cover/data [esacci.LC.yr.L4.MAP.multi-sensor.multi-platform.MERGED.v2-0-7.r1] [landcover]
}
