package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/querygen"
	"github.com/syssam/querygen/privacy"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"plain", errors.New("boom"), ExitGeneral},
		{"config", ConfigError("loading", errors.New("bad")), ExitConfig},
		{"parse", ParseError("parsing", nil), ExitParse},
		{"db", DBConnectError("connecting", errors.New("refused")), ExitDBConnect},
		{"wrapped", fmt.Errorf("outer: %w", ConfigError("loading", nil)), ExitConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestCompileFailure(t *testing.T) {
	denied := fmt.Errorf("a.yaml: %w", privacy.Denyf("table %q is not allowed", "secrets"))
	broken := fmt.Errorf("b.yaml: %w", querygen.NewCompileError("where", "x", "unknown operator"))

	assert.Equal(t, ExitDenied, CompileFailure("compiling", denied).Code)
	assert.Equal(t, ExitCompile, CompileFailure("compiling", broken).Code)
	assert.Equal(t, ExitDenied, CompileFailure("compiling", querygen.NewAggregateError(denied, denied)).Code)
	assert.Equal(t, ExitCompile, CompileFailure("compiling", querygen.NewAggregateError(denied, broken)).Code)
}

func TestExitErrorMessage(t *testing.T) {
	err := ConfigError("loading configuration", errors.New("bad yaml"))
	assert.Equal(t, "loading configuration: bad yaml", err.Error())
	assert.Equal(t, "no dsn", GeneralError("no dsn", nil).Error())

	var buf bytes.Buffer
	PrintError(&buf, err)
	assert.Equal(t, "Error: loading configuration: bad yaml\n", buf.String())
}
