package cli

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/rzzdr/quant-options-lab/pkg/utils/errors"
)

// parseReturnList parses "0.01, -0.02,0.5". Empty items are skipped.
func parseReturnList(list string) ([]float64, error) {
	var out []float64
	for i, field := range strings.Split(list, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, errors.InvalidArgumentf("return %d: %v", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}

// readReturns reads one return per line. Blank lines and lines starting with
// '#' are ignored.
func readReturns(r io.Reader) ([]float64, error) {
	var out []float64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		v, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return nil, errors.InvalidArgumentf("line %d: %v", line, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
