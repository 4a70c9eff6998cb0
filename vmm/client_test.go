package vmm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/projecteru2/core/log"
	coretypes "github.com/projecteru2/core/types"

	"github.com/dstack-validator/updater/types"
)

func TestMain(m *testing.M) {
	if err := log.SetupLog(context.TODO(), &coretypes.ServerLogConfig{Level: "error"}, ""); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// prpcServer records the last request and serves canned responses per method.
type prpcServer struct {
	t         *testing.T
	responses map[string]string
	status    map[string]int

	lastMethod string
	lastQuery  string
	lastBody   []byte
}

func (s *prpcServer) start() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			s.t.Errorf("expected POST, got %s", r.Method)
		}
		const prefix = "/prpc/"
		if len(r.URL.Path) <= len(prefix) || r.URL.Path[:len(prefix)] != prefix {
			s.t.Errorf("unexpected path %q", r.URL.Path)
		}
		s.lastMethod = r.URL.Path[len(prefix):]
		s.lastQuery = r.URL.RawQuery
		s.lastBody, _ = io.ReadAll(r.Body)

		if code, ok := s.status[s.lastMethod]; ok {
			w.WriteHeader(code)
		}
		if resp, ok := s.responses[s.lastMethod]; ok {
			_, _ = w.Write([]byte(resp))
		}
	}))
}

func TestStatusURLShapeAndDecode(t *testing.T) {
	srv := &prpcServer{t: t, responses: map[string]string{
		"Status": `{"vms":[{"id":"vm-1","name":"validator_vm","status":"running","appId":"abc"}]}`,
	}}
	ts := srv.start()
	defer ts.Close()

	resp, err := New(ts.URL).Status(context.TODO())
	if err != nil {
		t.Fatal(err)
	}
	if srv.lastMethod != "Status" {
		t.Fatalf("wrong method path: %q", srv.lastMethod)
	}
	if srv.lastQuery != "json" {
		t.Fatalf("expected ?json query, got %q", srv.lastQuery)
	}
	if len(resp.VMs) != 1 || resp.VMs[0].AppID != "abc" {
		t.Fatalf("unexpected status decode: %+v", resp)
	}
}

func TestStatusMissingVMsList(t *testing.T) {
	srv := &prpcServer{t: t, responses: map[string]string{"Status": `{}`}}
	ts := srv.start()
	defer ts.Close()

	_, err := New(ts.URL).Status(context.TODO())
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestVMInstanceAppIDFieldFallback(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"camelCase only", `{"id":"x","appId":"new"}`, "new"},
		{"snake_case only", `{"id":"x","app_id":"old"}`, "old"},
		{"both prefers camelCase", `{"id":"x","app_id":"old","appId":"new"}`, "new"},
		{"neither", `{"id":"x"}`, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var vm types.VMInstance
			if err := json.Unmarshal([]byte(tc.raw), &vm); err != nil {
				t.Fatal(err)
			}
			if vm.AppID != tc.want {
				t.Fatalf("app id %q, want %q", vm.AppID, tc.want)
			}
			if string(vm.Raw) != tc.raw {
				t.Fatalf("raw payload not retained: %s", vm.Raw)
			}
		})
	}
}

func TestRPCErrorCarriesBody(t *testing.T) {
	srv := &prpcServer{
		t:         t,
		status:    map[string]int{"StopVm": http.StatusConflict},
		responses: map[string]string{"StopVm": "vm is not running\n"},
	}
	ts := srv.start()
	defer ts.Close()

	err := New(ts.URL).StopVM(context.TODO(), "vm-1")
	var rpcErr *RPCError
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected RPCError, got %v", err)
	}
	if rpcErr.Method != "StopVm" || rpcErr.Code != http.StatusConflict || rpcErr.Body != "vm is not running" {
		t.Fatalf("unexpected RPCError: %+v", rpcErr)
	}
}

func TestStopAndRemoveSendID(t *testing.T) {
	srv := &prpcServer{t: t}
	ts := srv.start()
	defer ts.Close()
	c := New(ts.URL)

	if err := c.StopVM(context.TODO(), "vm-7"); err != nil {
		t.Fatal(err)
	}
	var stopReq types.StopVMRequest
	if err := json.Unmarshal(srv.lastBody, &stopReq); err != nil {
		t.Fatal(err)
	}
	if stopReq.ID != "vm-7" {
		t.Fatalf("StopVm sent id %q", stopReq.ID)
	}

	if err := c.RemoveVM(context.TODO(), "vm-7"); err != nil {
		t.Fatal(err)
	}
	if srv.lastMethod != "RemoveVm" {
		t.Fatalf("wrong method: %q", srv.lastMethod)
	}
}

func TestCreateVM(t *testing.T) {
	srv := &prpcServer{t: t, responses: map[string]string{"CreateVm": `{"id":"vm-new"}`}}
	ts := srv.start()
	defer ts.Close()

	id, err := New(ts.URL).CreateVM(context.TODO(), &types.CreateVMRequest{Name: "validator_vm", Image: "dstack-0.5.2"})
	if err != nil {
		t.Fatal(err)
	}
	if id != "vm-new" {
		t.Fatalf("id %q", id)
	}
	var req types.CreateVMRequest
	if err := json.Unmarshal(srv.lastBody, &req); err != nil {
		t.Fatal(err)
	}
	if req.Name != "validator_vm" || req.Image != "dstack-0.5.2" {
		t.Fatalf("request not carried through: %+v", req)
	}
}

func TestCreateVMMissingID(t *testing.T) {
	srv := &prpcServer{t: t, responses: map[string]string{"CreateVm": `{}`}}
	ts := srv.start()
	defer ts.Close()

	_, err := New(ts.URL).CreateVM(context.TODO(), &types.CreateVMRequest{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestAppEnvEncryptPubKey(t *testing.T) {
	srv := &prpcServer{t: t, responses: map[string]string{
		"GetAppEnvEncryptPubKey": `{"public_key":"deadbeef"}`,
	}}
	ts := srv.start()
	defer ts.Close()

	key, err := New(ts.URL).AppEnvEncryptPubKey(context.TODO(), "abc123")
	if err != nil {
		t.Fatal(err)
	}
	if key != "deadbeef" {
		t.Fatalf("key %q", key)
	}
	var req types.PubKeyRequest
	if err := json.Unmarshal(srv.lastBody, &req); err != nil {
		t.Fatal(err)
	}
	if req.AppID != "abc123" {
		t.Fatalf("app id %q", req.AppID)
	}
}

func TestComposeHashMissingField(t *testing.T) {
	srv := &prpcServer{t: t, responses: map[string]string{"GetComposeHash": `{"other":"x"}`}}
	ts := srv.start()
	defer ts.Close()

	_, err := New(ts.URL).ComposeHash(context.TODO(), &types.CreateVMRequest{})
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
}

func TestBaseURLTrailingSlashTrimmed(t *testing.T) {
	srv := &prpcServer{t: t, responses: map[string]string{"Status": `{"vms":[]}`}}
	ts := srv.start()
	defer ts.Close()

	if _, err := New(ts.URL + "/").Status(context.TODO()); err != nil {
		t.Fatal(err)
	}
	if srv.lastMethod != "Status" {
		t.Fatalf("wrong method: %q", srv.lastMethod)
	}
}
