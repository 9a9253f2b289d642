package clickhouse

import (
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClientConfig
		want string
	}{
		{
			name: "native without params",
			cfg:  ClientConfig{Host: "ch", Port: 9000, Database: "loserlab", User: "u", Password: "p"},
			want: "clickhouse://u:p@ch:9000/loserlab",
		},
		{
			name: "http with timeouts and async insert",
			cfg: ClientConfig{
				Host: "ch", Port: 8123, Database: "db", UseHTTP: true,
				DialTimeout: 5 * time.Second, AsyncInsert: true, WaitForAsync: true,
			},
			want: "clickhouse+http://:@ch:8123/db?dial_timeout=5s&async_insert=1&wait_for_async_insert=1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := buildDSN(tt.cfg); got != tt.want {
				t.Fatalf("buildDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTable(t *testing.T) {
	if got := NewFromDB(nil, "loserlab").Table("daily_bars"); got != "loserlab.daily_bars" {
		t.Fatalf("Table() = %q", got)
	}
	if got := NewFromDB(nil, "").Table("daily_bars"); got != "daily_bars" {
		t.Fatalf("Table() = %q", got)
	}
}
