package data

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

type errInvalidLine struct {
	lineNum  int
	splits   int
	expected int
}

func (e errInvalidLine) Error() string {
	return fmt.Sprintf("at line %d, expected %d values, got %d",
		e.lineNum, e.expected, e.splits)
}

// LoadCSV reads lines of the form "label,f1,...,fn" and returns the features
// as an n × samples matrix with the integer labels. Blank lines are skipped.
func LoadCSV(reader io.Reader, features int) (*mat.Dense, []int, error) {
	if features <= 0 {
		return nil, nil, errors.Errorf("feature count must be positive, got %d", features)
	}
	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		cols    [][]float64
		labels  []int
		lineNum int
	)
	for scanner.Scan() {
		lineNum++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		splits := strings.Split(text, ",")
		if len(splits) != features+1 {
			return nil, nil, errInvalidLine{
				lineNum:  lineNum,
				splits:   len(splits),
				expected: features + 1,
			}
		}
		label, err := strconv.Atoi(strings.TrimSpace(splits[0]))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "parsing label at line %d", lineNum)
		}
		inputs := make([]float64, features)
		for i, split := range splits[1:] {
			num, err := strconv.ParseFloat(strings.TrimSpace(split), 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "parsing input %d at line %d", i, lineNum)
			}
			inputs[i] = num
		}
		cols = append(cols, inputs)
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "reading samples")
	}
	if len(cols) == 0 {
		return nil, nil, errors.New("no samples")
	}

	x := mat.NewDense(features, len(cols), nil)
	for j, col := range cols {
		x.SetCol(j, col)
	}
	return x, labels, nil
}
