package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/rpc"

	"github.com/hashicorp/go-plugin"
)

// Handshake is used to verify that the module process and host are compatible
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "TOOLFLOW_PLUGIN",
	MagicCookieValue: "toolflow-module-v1",
}

// dispenseName is the single plugin kind a module process serves.
const dispenseName = "module"

// PluginMap is the map of plugins we can dispense
var PluginMap = map[string]plugin.Plugin{
	dispenseName: &ModuleRPCPlugin{},
}

// Serve runs impl as a module process. It is called from the module executable's main.
func Serve(impl Module) {
	plugin.Serve(&plugin.ServeConfig{
		HandshakeConfig: Handshake,
		Plugins: map[string]plugin.Plugin{
			dispenseName: &ModuleRPCPlugin{Impl: impl},
		},
	})
}

// ModuleRPCPlugin is the implementation of plugin.Plugin for RPC
type ModuleRPCPlugin struct {
	Impl Module
}

func (p *ModuleRPCPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &ModuleRPCServer{Impl: p.Impl}, nil
}

func (p *ModuleRPCPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &ModuleRPCClient{client: c}, nil
}

// InvokeArgs are the arguments for the Invoke RPC call. Values travel as JSON.
type InvokeArgs struct {
	Class  string
	Method string
	Args   []byte
}

// InvokeResp is the response for the Invoke RPC call
type InvokeResp struct {
	Result []byte
	Error  string
}

// ModuleRPCServer is the RPC server that ModuleRPCClient talks to
type ModuleRPCServer struct {
	Impl Module
}

func (s *ModuleRPCServer) Invoke(args *InvokeArgs, resp *InvokeResp) error {
	var params map[string]any
	if len(args.Args) > 0 {
		if err := json.Unmarshal(args.Args, &params); err != nil {
			resp.Error = fmt.Sprintf("invalid arguments: %v", err)
			return nil
		}
	}

	result, err := s.Impl.Invoke(context.Background(), args.Class, args.Method, params)
	if err != nil {
		resp.Error = err.Error()
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		resp.Error = fmt.Sprintf("failed to encode result: %v", err)
		return nil
	}
	resp.Result = data
	return nil
}

// ModuleRPCClient is the RPC client that talks to ModuleRPCServer
type ModuleRPCClient struct {
	client *rpc.Client
}

func (c *ModuleRPCClient) Invoke(ctx context.Context, class, method string, args map[string]any) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("failed to encode arguments: %w", err)
	}

	var resp InvokeResp
	if err := c.client.Call("Plugin.Invoke", &InvokeArgs{Class: class, Method: method, Args: data}, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}

	var result any
	if len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, &result); err != nil {
			return nil, fmt.Errorf("failed to decode result: %w", err)
		}
	}
	return result, nil
}

var _ Module = (*ModuleRPCClient)(nil)
