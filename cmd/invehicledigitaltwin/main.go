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

// Package main implements the In-Vehicle Digital Twin server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/eclipse-ibeji/ibeji-sub000/internal/common"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/extension"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/intercept"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/intercept/managedsubscribe"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/registry"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/registry/wire"
	"github.com/eclipse-ibeji/ibeji-sub000/internal/subscription"
	"github.com/eclipse-ibeji/ibeji-sub000/pkg/dtdl/parser"
)

// knownContexts maps @context names to the files shipping their definitions,
// relative to the model search path.
var knownContexts = map[string]string{
	"dtmi:dtdl:context;2": "context/DTDL.v2.context.json",
	"dtmi:sdv:context;1":  "context/SDV.v1.context.json",
}

func newContextResolver(cfg *common.Config) *parser.ContextResolver {
	searchPath := cfg.Models.SearchPath
	if searchPath == "" {
		searchPath = os.Getenv(parser.PathEnvVar)
	}

	resolver := parser.NewContextResolver()
	contexts := map[string]string{}
	for name, relative := range knownContexts {
		contexts[name] = relative
	}
	if cfg.Models.ContextFile != "" {
		contexts["dtmi:dtdl:context;2"] = cfg.Models.ContextFile
	}

	for name, relative := range contexts {
		path, err := parser.FindFile(searchPath, relative)
		if err != nil {
			log.Printf("⚠️ Context %q not available: %v", name, err)
			continue
		}
		resolver.RegisterFile(name, path)
		log.Printf("📁 Context %q loaded from %s", name, path)
	}
	return resolver
}

func preloadModels(cfg *common.Config, store *registry.Store, modelParser *parser.ModelParser) error {
	if len(cfg.Models.Preload) == 0 {
		return nil
	}
	searchPath := cfg.Models.SearchPath
	if searchPath == "" {
		searchPath = os.Getenv(parser.PathEnvVar)
	}

	var documents []string
	for _, relative := range cfg.Models.Preload {
		path, err := parser.FindFile(searchPath, relative)
		if err != nil {
			return fmt.Errorf("preload model %q: %w", relative, err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("preload model %q: %w", relative, err)
		}
		documents = append(documents, string(data))
	}

	dict, err := modelParser.Parse(documents)
	if err != nil {
		return fmt.Errorf("parse preloaded models: %w", err)
	}
	store.PutModelEntities(dict.Entities())
	log.Printf("📜 Preloaded %d model entities from %d documents", dict.Len(), len(documents))
	return nil
}

func runServer(ctx context.Context, configPath string) error {
	common.PrintSplash()
	log.Default().Println("Loading In-Vehicle Digital Twin Service...")
	log.Default().Println("Config Path:", configPath)

	cfg, err := common.LoadConfig(configPath)
	if err != nil {
		return err
	}

	// === Model pipeline ===
	resolver := newContextResolver(cfg)
	modelParser := parser.NewModelParser(resolver)

	registryStore := registry.NewStore()
	if err := preloadModels(cfg, registryStore, modelParser); err != nil {
		return err
	}

	// === gRPC services ===
	grpcServer := grpc.NewServer(grpc.ForceServerCodec(wire.Codec{}))
	grpcServer.RegisterService(&registry.ServiceDesc, registry.NewService(registryStore, modelParser))

	var interceptors []intercept.Interceptor
	var broker extension.Broker
	subscriptionStore := subscription.NewStore()

	if cfg.Extension.Enabled {
		broker, err = extension.ConnectBroker(ctx, cfg.Broker.URL)
		if err != nil {
			return err
		}
		defer broker.Close()

		grpcServer.RegisterService(&extension.ServiceDesc,
			extension.NewService(subscriptionStore, broker, cfg.Broker.ExternalURI))
		interceptors = append(interceptors,
			managedsubscribe.NewInterceptor(subscriptionStore, cfg.Extension.URI))
	}

	// The interceptor chain wraps the gRPC server at the HTTP/2 transport,
	// so registration payloads can be rewritten before decoding.
	transport := intercept.NewTransportLayer(grpcServer, interceptors...)
	grpcHandler := h2c.NewHandler(transport, &http2.Server{})

	grpcAddr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.GrpcPort)
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", grpcAddr, err)
	}

	// === HTTP side channel ===
	r := chi.NewRouter()
	common.AddCors(r, cfg)
	common.AddHealthEndpoint(r, cfg)
	common.AddInspectionEndpoints(r, cfg, registryStore)

	httpAddr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.HTTPPort)
	httpServer := &http.Server{Addr: httpAddr, Handler: r}
	grpcHTTPServer := &http.Server{Handler: grpcHandler}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Printf("▶️ In-Vehicle Digital Twin listening on %s", grpcAddr)
		if err := grpcHTTPServer.Serve(grpcListener); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		log.Printf("▶️ Inspection endpoints listening on %s (contextPath=%q)", httpAddr, cfg.Server.ContextPath)
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		log.Println("Shutting down server...")
		shutdownCtx := context.Background()
		_ = httpServer.Shutdown(shutdownCtx)
		_ = grpcHTTPServer.Shutdown(shutdownCtx)
		return nil
	})

	return group.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	configPath := ""
	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.Parse()
	if err := runServer(ctx, configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
