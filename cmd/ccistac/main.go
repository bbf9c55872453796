// ccistac builds, inspects and maintains the ESA CCI STAC catalogue.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)

		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(ExitGeneralError)
	}
}
