package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableNameFromPath(t *testing.T) {
	assert.Equal(t, "sales_q1", tableNameFromPath("/data/Sales Q1.csv"))
	assert.Equal(t, "orders", tableNameFromPath("orders.xlsx"))
	assert.Equal(t, "a_b", tableNameFromPath("--a--b--.csv"))
}

func TestValidPort(t *testing.T) {
	assert.NoError(t, validPort("5432"))
	assert.Error(t, validPort("0"))
	assert.Error(t, validPort("http"))
	assert.Error(t, validPort(70000))
}
