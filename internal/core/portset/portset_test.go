package portset

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neoport/internal/core/model"
)

func TestRegistryTables(t *testing.T) {
	r := NewRegistry(nil)

	quick := r.QuickPorts()
	assert.Len(t, quick, 29)
	assert.True(t, sort.IntsAreSorted(quick))

	tests := []struct {
		port     int
		service  string
		protocol model.Protocol
	}{
		{21, "ftp", model.ProtocolTCP},
		{22, "ssh", model.ProtocolTCP},
		{53, "dns", model.ProtocolUDP},
		{123, "ntp", model.ProtocolUDP},
		{443, "https", model.ProtocolTLS},
		{465, "smtps", model.ProtocolTLS},
		{993, "imaps", model.ProtocolTLS},
		{995, "pop3s", model.ProtocolTLS},
		{8443, "https-alt", model.ProtocolTLS},
		{3000, "dev-http", model.ProtocolTCP},
		{11211, "memcached", model.ProtocolTCP},
		{4444, UnknownService, model.ProtocolTCP},
	}
	for _, tt := range tests {
		spec := r.Spec(tt.port)
		assert.Equal(t, tt.service, spec.Service, "port %d", tt.port)
		assert.Equal(t, tt.protocol, spec.Protocol, "port %d", tt.port)
	}

	// 返回副本，外部修改不影响端口表
	quick[0] = 1
	assert.Equal(t, 20, r.QuickPorts()[0])
}

func TestRegistryExtraServices(t *testing.T) {
	r := NewRegistry(map[int]string{8081: "admin-ui", 22: "ssh-alt", 0: "bad"})
	assert.Equal(t, "admin-ui", r.ServiceName(8081))
	assert.Equal(t, "ssh-alt", r.ServiceName(22))
	assert.Len(t, r.QuickPorts(), 29, "extra services only rename ports")
}

func TestDefaultRegistryBuiltOnce(t *testing.T) {
	a := Default()
	b := Init(map[int]string{9999: "late"})
	assert.Same(t, a, b)
	assert.Equal(t, UnknownService, b.ServiceName(9999))
}

func TestResolve(t *testing.T) {
	r := NewRegistry(nil)

	tests := []struct {
		name        string
		req         model.ScanRequest
		wantPorts   int
		wantService bool
		wantTimeout time.Duration
		wantErr     bool
	}{
		{"quick", model.ScanRequest{Target: "h", ScanType: model.ScanTypeQuick}, 29, false, 1200 * time.Millisecond, false},
		{"full aliases quick", model.ScanRequest{Target: "h", ScanType: model.ScanTypeFull}, 29, false, 1200 * time.Millisecond, false},
		{"unknown type", model.ScanRequest{Target: "h", ScanType: "other"}, 29, false, 1200 * time.Millisecond, false},
		{"empty type", model.ScanRequest{Target: "h"}, 29, false, 1200 * time.Millisecond, false},
		{"service raises timeout", model.ScanRequest{Target: "h", ScanType: model.ScanTypeService, TimeoutMs: 500}, 29, true, 1500 * time.Millisecond, false},
		{"service keeps longer timeout", model.ScanRequest{Target: "h", ScanType: model.ScanTypeService, TimeoutMs: 3000}, 29, true, 3000 * time.Millisecond, false},
		{"custom", model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom, StartPort: 8000, EndPort: 8010}, 11, false, 1200 * time.Millisecond, false},
		{"custom single port", model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom, StartPort: 22, EndPort: 22}, 1, false, 1200 * time.Millisecond, false},
		{"custom max size", model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom, StartPort: 1, EndPort: 2000}, 2000, false, 1200 * time.Millisecond, false},
		{"custom too large", model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom, StartPort: 1, EndPort: 2001}, 0, false, 0, true},
		{"custom reversed", model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom, StartPort: 100, EndPort: 50}, 0, false, 0, true},
		{"custom out of range", model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom, StartPort: 65000, EndPort: 70000}, 0, false, 0, true},
		{"custom missing range", model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom}, 0, false, 0, true},
		{"missing target", model.ScanRequest{Target: "  "}, 0, false, 0, true},
		{"negative concurrency", model.ScanRequest{Target: "h", Concurrency: -1}, 0, false, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := r.Resolve(&tt.req)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, model.IsValidationError(err))
				assert.Nil(t, plan)
				return
			}
			require.NoError(t, err)
			assert.Len(t, plan.Ports, tt.wantPorts)
			assert.Equal(t, tt.wantService, plan.ServiceMode)
			assert.Equal(t, tt.wantTimeout, plan.Timeout)
			assert.GreaterOrEqual(t, plan.Timeout, tt.req.BaseTimeout())
		})
	}
}

func TestResolve_MissingTargetMessage(t *testing.T) {
	_, err := NewRegistry(nil).Resolve(&model.ScanRequest{})
	require.Error(t, err)
	assert.Equal(t, "Target IP/hostname is required", err.Error())
}

func TestPlanWorkers(t *testing.T) {
	r := NewRegistry(nil)

	plan, err := r.Resolve(&model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom, StartPort: 1, EndPort: 20, Concurrency: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, plan.Workers())

	plan, err = r.Resolve(&model.ScanRequest{Target: "h", ScanType: model.ScanTypeCustom, StartPort: 1, EndPort: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, plan.Workers(), "never more workers than ports")
}
