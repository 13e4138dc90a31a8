package order

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKey(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "mysql duplicate entry",
			err:  &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'ORD-1-ab' for key 'orders_code_idx'"},
			want: true,
		},
		{
			name: "wrapped mysql duplicate entry",
			err:  fmt.Errorf("insert order: %w", &mysql.MySQLError{Number: 1062}),
			want: true,
		},
		{
			name: "mysql other error",
			err:  &mysql.MySQLError{Number: 1213, Message: "Deadlock found"},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("connection refused"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isDuplicateKey(tt.err); got != tt.want {
				t.Errorf("isDuplicateKey(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
