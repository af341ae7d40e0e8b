package exports_test

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"cleanbot/internal/exports"
	"cleanbot/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasicEmptyIsHeaderOnly(t *testing.T) {
	out, err := exports.Basic(nil)
	require.NoError(t, err)
	assert.Equal(t, "id;city;date;time;status;manager_id;master_id\n", string(out))
}

func TestFullEmptyIsHeaderOnly(t *testing.T) {
	out, err := exports.Full(nil, nil)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 1)
	assert.True(t, strings.HasPrefix(lines[0], "id;city;address;"))
}

func TestBasicRows(t *testing.T) {
	orders := []model.Order{
		{
			ID: 1, City: "moscow", Date: "31.08.2026", Time: "14:00",
			Status: model.StatusPublished, ManagerID: 100,
		},
		{
			ID: 2, City: "kazan", Date: "01.09.2026", Time: "10:30",
			Status: model.StatusAssigned, ManagerID: 100,
			MasterID: sql.NullInt64{Int64: 200, Valid: true},
		},
	}
	out, err := exports.Basic(orders)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1;moscow;31.08.2026;14:00;published;100;", lines[1])
	assert.Equal(t, "2;kazan;01.09.2026;10:30;assigned;100;200", lines[2])
}

func TestFullIncludesPhotoFileIDs(t *testing.T) {
	created := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	orders := []model.Order{{
		ID: 5, City: "moscow", Address: "Ленина 1", Date: "31.08.2026",
		Time: "14:00", Type: "t", Equipment: "e", Conditions: "c",
		ClientContact: "@client", ManagerContact: "@manager",
		ManagerID: 100, MasterID: sql.NullInt64{Int64: 200, Valid: true},
		Status: model.StatusInProgress, CreatedAt: created,
	}}
	photos := exports.GroupPhotos([]model.OrderPhoto{
		{OrderID: 5, FileID: "f1", Type: model.PhotoBefore},
		{OrderID: 5, FileID: "f2", Type: model.PhotoBefore},
		{OrderID: 5, FileID: "f3", Type: model.PhotoAfter},
	})

	out, err := exports.Full(orders, photos)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(string(out), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[1], ";f1,f2;f3"), lines[1])
	assert.Contains(t, lines[1], "2026-08-31 12:00:00")
}

func TestSemicolonInFieldIsQuoted(t *testing.T) {
	orders := []model.Order{{
		ID: 1, City: "moscow", Date: "31.08.2026", Time: "14:00",
		Status: model.StatusPublished, ManagerID: 100,
	}}
	orders[0].City = "a;b"
	out, err := exports.Basic(orders)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"a;b"`)
}
