package blob

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type memberSet map[string]bool

func (m memberSet) IsMember(ip string) bool { return m[ip] }

func TestGateAdmit(t *testing.T) {
	members := memberSet{"10.0.0.1": true}

	tests := []struct {
		name       string
		gate       *Gate
		header     string
		value      string
		wantIP     string
		wantStatus int
	}{
		{"member", &Gate{Members: members}, DefaultIPHeader, "10.0.0.1", "10.0.0.1", 0},
		{"member with padding", &Gate{Members: members}, DefaultIPHeader, " 10.0.0.1 ", "10.0.0.1", 0},
		{"non member", &Gate{Members: members}, DefaultIPHeader, "10.0.0.2", "10.0.0.2", http.StatusForbidden},
		{"missing header", &Gate{Members: members}, "", "", "", http.StatusBadRequest},
		{"custom header", &Gate{Header: "X-Forwarded-For", Members: members}, "X-Forwarded-For", "10.0.0.1", "10.0.0.1", 0},
		{"custom header ignores default", &Gate{Header: "X-Forwarded-For", Members: members}, DefaultIPHeader, "10.0.0.1", "", http.StatusBadRequest},
		{"no membership", &Gate{}, DefaultIPHeader, "10.0.0.1", "10.0.0.1", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/data/x.mp3", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			ip, status := tt.gate.Admit(req)
			if ip != tt.wantIP || status != tt.wantStatus {
				t.Errorf("Admit() = (%q, %d), want (%q, %d)", ip, status, tt.wantIP, tt.wantStatus)
			}
		})
	}
}
