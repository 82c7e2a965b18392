/*******************************************************************************
* Copyright (C) 2026 the Eclipse Ibeji Authors
*
* Permission is hereby granted, free of charge, to any person obtaining
* a copy of this software and associated documentation files (the
* "Software"), to deal in the Software without restriction, including
* without limitation the rights to use, copy, modify, merge, publish,
* distribute, sublicense, and/or sell copies of the Software, and to
* permit persons to whom the Software is furnished to do so, subject to
* the following conditions:
*
* The above copyright notice and this permission notice shall be
* included in all copies or substantial portions of the Software.
*
* THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
* EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
* MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND
* NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE
* LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION
* OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION
* WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*
* SPDX-License-Identifier: MIT
******************************************************************************/

package registry

import (
	"context"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/registry/wire"
	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtdl/parser"
	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtmi"
)

const componentName = "invehicle-digital-twin"

// ServiceName is the fully qualified gRPC service name of the registry.
const ServiceName = "core.InvehicleDigitalTwin"

// InvehicleDigitalTwinServer is the registry RPC surface.
type InvehicleDigitalTwinServer interface {
	Register(ctx context.Context, req *wire.RegisterRequest) (*wire.RegisterResponse, error)
	FindById(ctx context.Context, req *wire.FindByIdRequest) (*wire.FindByIdResponse, error)
	FindByModel(ctx context.Context, req *wire.FindByModelRequest) (*wire.FindByModelResponse, error)
}

// Service implements InvehicleDigitalTwinServer over a shared Store.
// Registrations that ship DTDL source are parsed and merged into the model
// index before the registration is accepted.
type Service struct {
	store  *Store
	parser *parser.ModelParser
}

// NewService wires the registry service to its store and model parser.
func NewService(store *Store, modelParser *parser.ModelParser) *Service {
	return &Service{store: store, parser: modelParser}
}

func validateRecord(record *wire.EntityAccessInfo) error {
	if _, err := dtmi.Parse(record.InstanceID); err != nil {
		return status.Errorf(codes.InvalidArgument, "instance id %q is not a valid DTMI: %v", record.InstanceID, err)
	}
	if _, err := dtmi.Parse(record.ModelID); err != nil {
		return status.Errorf(codes.InvalidArgument, "model id %q is not a valid DTMI: %v", record.ModelID, err)
	}
	if len(record.Endpoints) == 0 {
		return status.Errorf(codes.InvalidArgument, "entity %q has no endpoints", record.InstanceID)
	}
	for _, endpoint := range record.Endpoints {
		if endpoint.Protocol == "" || endpoint.URI == "" {
			return status.Errorf(codes.InvalidArgument, "entity %q has an endpoint without protocol or uri", record.InstanceID)
		}
	}
	return nil
}

// Register validates and stores every entity in the request. The request is
// accepted as a whole or rejected as a whole: a single invalid record leaves
// the store untouched.
func (s *Service) Register(_ context.Context, req *wire.RegisterRequest) (*wire.RegisterResponse, error) {
	if len(req.Entities) == 0 {
		log.Printf("🚘 [%s] Error in Register: empty request", componentName)
		return nil, status.Error(codes.InvalidArgument, "at least one entity is required")
	}

	var documents []string
	for _, record := range req.Entities {
		if err := validateRecord(record); err != nil {
			log.Printf("🚘 [%s] Error in Register: invalid record (id=%q): %v", componentName, record.InstanceID, err)
			return nil, err
		}
		documents = append(documents, record.DtdlDocuments...)
	}

	if len(documents) > 0 {
		dict, err := s.parser.Parse(documents)
		if err != nil {
			log.Printf("🚘 [%s] Error in Register: model parse failed: %v", componentName, err)
			return nil, status.Errorf(codes.InvalidArgument, "registered model does not parse: %v", err)
		}
		s.store.PutModelEntities(dict.Entities())
	}

	for _, record := range req.Entities {
		s.store.Upsert(record)
		log.Printf("🚘 [%s] Registered entity (id=%q model=%q endpoints=%d)", componentName, record.InstanceID, record.ModelID, len(record.Endpoints))
	}
	return &wire.RegisterResponse{}, nil
}

// FindById returns the registration record of one entity instance.
func (s *Service) FindById(_ context.Context, req *wire.FindByIdRequest) (*wire.FindByIdResponse, error) {
	if _, err := dtmi.Parse(req.ID); err != nil {
		log.Printf("🚘 [%s] Error in FindById: bad request (id=%q): %v", componentName, req.ID, err)
		return nil, status.Errorf(codes.InvalidArgument, "id %q is not a valid DTMI: %v", req.ID, err)
	}
	record, ok := s.store.FindByID(req.ID)
	if !ok {
		log.Printf("🚘 [%s] Error in FindById: not found (id=%q)", componentName, req.ID)
		return nil, status.Errorf(codes.NotFound, "no entity registered with id %q", req.ID)
	}
	return &wire.FindByIdResponse{Entity: record}, nil
}

// FindByModel returns every registration of a model.
func (s *Service) FindByModel(_ context.Context, req *wire.FindByModelRequest) (*wire.FindByModelResponse, error) {
	if _, err := dtmi.Parse(req.ModelID); err != nil {
		log.Printf("🚘 [%s] Error in FindByModel: bad request (modelId=%q): %v", componentName, req.ModelID, err)
		return nil, status.Errorf(codes.InvalidArgument, "model id %q is not a valid DTMI: %v", req.ModelID, err)
	}
	records := s.store.FindByModel(req.ModelID)
	if len(records) == 0 {
		log.Printf("🚘 [%s] Error in FindByModel: not found (modelId=%q)", componentName, req.ModelID)
		return nil, status.Errorf(codes.NotFound, "no entities registered with model id %q", req.ModelID)
	}
	return &wire.FindByModelResponse{Entities: records}, nil
}

func registerHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wire.RegisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvehicleDigitalTwinServer).Register(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/Register"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InvehicleDigitalTwinServer).Register(ctx, req.(*wire.RegisterRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func findByIdHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wire.FindByIdRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvehicleDigitalTwinServer).FindById(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/FindById"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InvehicleDigitalTwinServer).FindById(ctx, req.(*wire.FindByIdRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func findByModelHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wire.FindByModelRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InvehicleDigitalTwinServer).FindByModel(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + ServiceName + "/FindByModel"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(InvehicleDigitalTwinServer).FindByModel(ctx, req.(*wire.FindByModelRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the hand-written gRPC service descriptor for the registry.
// The server it is registered on must use wire.Codec.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*InvehicleDigitalTwinServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: registerHandler},
		{MethodName: "FindById", Handler: findByIdHandler},
		{MethodName: "FindByModel", Handler: findByModelHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "invehicle_digital_twin.proto",
}
