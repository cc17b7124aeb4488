package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poultryops/settlement-service/internal/domain"
)

// TestNegativeVarianceDays_CountsDeductedOnly: the repeated-negative scan
// feeds off confirmed deductions. The query must exclude PENDING rows still
// awaiting an approver and IGNORED rows from rejected submissions.
func TestNegativeVarianceDays_CountsDeductedOnly(t *testing.T) {
	repo := NewVarianceRepository()
	exec := &recordingExecutor{queryErr: assert.AnError}

	from := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err := repo.NegativeVarianceDays(context.Background(), exec, from, to)
	require.Error(t, err)

	assert.Contains(t, exec.query, "v.status = $2")
	require.Len(t, exec.args, 4)
	assert.Equal(t, domain.VarianceTypeNegative, exec.args[0])
	assert.Equal(t, domain.VarianceStatusDeducted, exec.args[1])
	assert.Equal(t, from, exec.args[2])
	assert.Equal(t, to, exec.args[3])
}
