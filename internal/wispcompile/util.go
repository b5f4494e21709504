package wispcompile

import "strconv"

func parseNumber(lexeme string) float64 {
	n, _ := strconv.ParseFloat(lexeme, 64)
	return n
}
