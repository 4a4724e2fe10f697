package main

import (
	"fmt"
	"reflect"

	"github.com/kpfaulkner/jxl-entropy/enc"
	"github.com/kpfaulkner/jxl-entropy/entropy"
)

// displays sizes of the structs the coder allocates per symbol or per cluster, to spot padding
func memStats(input any) {

	rType := reflect.TypeOf(input)
	fmt.Printf("Size of %s : %d bytes\n", rType.Name(), rType.Size())

	if rType.Kind() == reflect.Struct {
		for i := 0; i < rType.NumField(); i++ {
			field := rType.Field(i)
			fmt.Printf("  Name %s\n", field.Name)
			fmt.Printf("    Offset of    : %d bytes\n", field.Offset)
			fmt.Printf("    Size of      : %d bytes\n", field.Type.Size())
			fmt.Printf("    Alignment of : %d bytes\n", field.Type.Align())
			fmt.Println()
		}
	}
}

func main() {
	memStats(entropy.AliasEntry{})
	memStats(entropy.AliasSymbol{})
	memStats(entropy.ANSSymbolReader{})
	memStats(entropy.HybridIntegerConfig{})
	memStats(enc.Token{})
	memStats(enc.Histogram{})
}
