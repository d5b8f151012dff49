package entities_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyarray/device-agent/internal/entities"
	"github.com/skyarray/device-agent/internal/errs"
)

func Test_TaskResultTuple(t *testing.T) {
	result := entities.TaskResult{
		UniqueID: "1700000000_abc_Scan",
		Code:     entities.ResultFailed,
		Message:  "scan device failure",
	}

	tuple := result.ToTuple()
	require.Equal(t, [3]string{"1700000000_abc_Scan", "3", "scan device failure"}, tuple)

	parsed, err := entities.TaskResultFromTuple(tuple)
	require.NoError(t, err)
	require.Equal(t, result, parsed)
}

func Test_TaskResultFromTuple_BadCode(t *testing.T) {
	_, err := entities.TaskResultFromTuple([3]string{"id", "not-a-number", "msg"})
	require.ErrorIs(t, err, errs.ErrInvalidTaskResult)
}

func Test_TaskResultWire(t *testing.T) {
	result := entities.TaskResult{
		UniqueID: "1700000000_abc_Configure",
		Code:     entities.ResultOK,
		Message:  "configuration cfg-1 applied",
	}

	pair, err := result.ToWire()
	require.NoError(t, err)
	require.Equal(t, "1700000000_abc_Configure", pair[0])
	require.JSONEq(t, `[0,"configuration cfg-1 applied"]`, pair[1])

	parsed, err := entities.TaskResultFromWire(pair)
	require.NoError(t, err)
	require.Equal(t, result, parsed)
}

func Test_TaskResultFromWire_Invalid(t *testing.T) {
	testTable := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: "garbage"},
		{name: "wrong arity", payload: `[0]`},
		{name: "non numeric code", payload: `["zero","msg"]`},
		{name: "non string message", payload: `[0,42]`},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := entities.TaskResultFromWire([2]string{"id", testCase.payload})
			require.ErrorIs(t, err, errs.ErrInvalidTaskResult)
		})
	}
}

func Test_UniqueID(t *testing.T) {
	uniqueID := entities.NewUniqueID("AssignResources")

	timestamp, random, taskName, err := entities.ParseUniqueID(uniqueID)
	require.NoError(t, err)
	require.Positive(t, timestamp)
	require.NotEmpty(t, random)
	require.Equal(t, "AssignResources", taskName)
}

func Test_UniqueID_NameWithUnderscores(t *testing.T) {
	uniqueID := entities.NewUniqueID("end_scan_fast")

	_, _, taskName, err := entities.ParseUniqueID(uniqueID)
	require.NoError(t, err)
	require.Equal(t, "end_scan_fast", taskName)
}

func Test_ParseUniqueID_Invalid(t *testing.T) {
	testTable := []struct {
		name     string
		uniqueID string
	}{
		{name: "too few parts", uniqueID: "justonepart"},
		{name: "two parts", uniqueID: "123_abc"},
		{name: "non numeric timestamp", uniqueID: "abc_def_Scan"},
		{name: "empty", uniqueID: ""},
	}

	for _, testCase := range testTable {
		t.Run(testCase.name, func(t *testing.T) {
			_, _, _, err := entities.ParseUniqueID(testCase.uniqueID)
			require.ErrorIs(t, err, errs.ErrInvalidUniqueID)
		})
	}
}

func Test_UniqueID_SortableByTime(t *testing.T) {
	first := entities.NewUniqueID("Scan")
	second := entities.NewUniqueID("Scan")

	require.LessOrEqual(t, strings.SplitN(first, "_", 2)[0], strings.SplitN(second, "_", 2)[0])
}

func Test_ResultCodeString(t *testing.T) {
	require.Equal(t, "OK", entities.ResultOK.String())
	require.Equal(t, "REJECTED", entities.ResultRejected.String())
	require.Equal(t, "NOT_ALLOWED", entities.ResultNotAllowed.String())
	require.Equal(t, "UNKNOWN", entities.ResultCode(99).String())
}
