package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyFrom_EmptyRows(t *testing.T) {
	n, err := CopyFrom(context.TODO(), nil, "leads", []string{"a", "b"}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCopyFrom_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	rows := [][]any{
		{"lead_1", "Jane", "Doe"},
		{"lead_2", "John", "Roe"},
	}
	mock.ExpectCopyFrom([]string{"leads"}, []string{"id", "first_name", "last_name"}).
		WillReturnResult(int64(len(rows)))

	n, err := CopyFrom(context.Background(), mock, "leads", []string{"id", "first_name", "last_name"}, rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCopyFrom_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectCopyFrom([]string{"leads"}, []string{"id"}).
		WillReturnError(fmt.Errorf("connection reset"))

	_, err = CopyFrom(context.Background(), mock, "leads", []string{"id"}, [][]any{{"lead_1"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY INTO leads")
	assert.NoError(t, mock.ExpectationsWereMet())
}
