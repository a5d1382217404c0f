// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 AgentBridge Contributors

//go:build integration

package bridge_test

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/agentbridge/agentbridge/internal/boundary"
	"github.com/agentbridge/agentbridge/internal/boundary/inproc"
	"github.com/agentbridge/agentbridge/internal/demo"
	"github.com/agentbridge/agentbridge/internal/pluginctx"
	"github.com/agentbridge/agentbridge/internal/runtime"
)

type dispatchEnvelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   string          `json:"error"`
}

func decodeEnvelope(raw string) dispatchEnvelope {
	var env dispatchEnvelope
	ExpectWithOffset(1, json.Unmarshal([]byte(raw), &env)).To(Succeed())
	return env
}

var _ = Describe("Bridge", func() {
	var (
		ctx  context.Context
		rt   *runtime.Runtime
		host *inproc.Host
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		rt, err = demo.NewRuntime()
		Expect(err).NotTo(HaveOccurred())

		host = inproc.New()
		Expect(demo.SeedHost(host, rt)).To(Succeed())
	})

	Describe("dispatch envelopes", func() {
		It("computes a bare numeric result", func() {
			env := decodeEnvelope(rt.HandleExecute(ctx, "add", `{"a":156.0,"b":847.0}`))
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Result)).To(Equal("1003"))
		})

		It("computes exponentiation", func() {
			env := decodeEnvelope(rt.HandleExecute(ctx, "power", `{"base":2.0,"exponent":8.0}`))
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Result)).To(Equal("256"))
		})

		It("carries a handler-level failure inside a successful dispatch", func() {
			env := decodeEnvelope(rt.HandleExecute(ctx, "divide", `{"a":1.0,"b":0.0}`))
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Result)).To(MatchJSON(`{"Err":"Division by zero"}`))
		})

		It("unwraps a fallible success", func() {
			env := decodeEnvelope(rt.HandleExecute(ctx, "divide", `{"a":5.0,"b":2.0}`))
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Result)).To(MatchJSON(`{"Ok":2.5}`))
		})

		It("reports an unknown function as a dispatch failure", func() {
			env := decodeEnvelope(rt.HandleExecute(ctx, "missing", `{}`))
			Expect(env.Success).To(BeFalse())
			Expect(env.Error).To(ContainSubstring("missing"))
		})

		It("dispatches across plugins through one entry point", func() {
			env := decodeEnvelope(rt.HandleExecute(ctx, "to_upper", `{"text":"hello"}`))
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Result)).To(Equal(`"HELLO"`))

			env = decodeEnvelope(rt.HandleExecute(ctx, "get_stats", `{}`))
			Expect(env.Success).To(BeTrue())
			Expect(string(env.Result)).To(ContainSubstring(`"plugin_name":"AsyncPlugin"`))
		})
	})

	Describe("context handles", func() {
		It("resolves templates against context properties", func() {
			cfg, err := pluginctx.NewConfiguration("MathPlugin", "calculator").
				WithProperty("precision", "high")
			Expect(err).NotTo(HaveOccurred())

			handle, err := boundary.NewContextHandle(ctx, host, cfg)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = handle.Close(ctx) }()

			fns, err := handle.AvailableFunctions(ctx, "MathPlugin")
			Expect(err).NotTo(HaveOccurred())
			Expect(fns).To(HaveLen(8))
		})

		It("restricts the visible catalog through the allow list", func() {
			cfg := pluginctx.NewConfiguration("MathPlugin", "calculator").
				WithAvailableFunctions("add", "power")

			handle, err := boundary.NewContextHandle(ctx, host, cfg)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = handle.Close(ctx) }()

			fns, err := handle.AvailableFunctions(ctx, "MathPlugin")
			Expect(err).NotTo(HaveOccurred())
			Expect(fns).To(HaveLen(2))

			names := make([]string, 0, len(fns))
			for _, fn := range fns {
				names = append(names, fn.Name)
			}
			Expect(names).To(ConsistOf("add", "power"))
		})

		It("widens the catalog after an update", func() {
			cfg := pluginctx.NewConfiguration("MathPlugin", "calculator").
				WithAvailableFunctions("add")

			handle, err := boundary.NewContextHandle(ctx, host, cfg)
			Expect(err).NotTo(HaveOccurred())
			defer func() { _ = handle.Close(ctx) }()

			fns, err := handle.AvailableFunctions(ctx, "MathPlugin")
			Expect(err).NotTo(HaveOccurred())
			Expect(fns).To(HaveLen(1))

			Expect(handle.Update(ctx, pluginctx.NewConfiguration("MathPlugin", "calculator"))).To(Succeed())

			fns, err = handle.AvailableFunctions(ctx, "MathPlugin")
			Expect(err).NotTo(HaveOccurred())
			Expect(fns).To(HaveLen(8))
		})

		It("destroys the host context exactly once", func() {
			handle, err := boundary.NewContextHandle(ctx, host,
				pluginctx.NewConfiguration("MathPlugin", "calculator"))
			Expect(err).NotTo(HaveOccurred())

			Expect(handle.Close(ctx)).To(Succeed())
			Expect(handle.Close(ctx)).To(Succeed())
			Expect(host.Counters().ContextDestroys).To(Equal(1))
		})
	})

	Describe("agent lifecycle", func() {
		It("creates and destroys an agent with attached plugin contexts", func() {
			agent, err := boundary.NewAgentBuilder("demo-agent").
				WithInstructions("You are a careful assistant.").
				WithOllama("llama3").
				WithPlugins(rt.FunctionInfos()...).
				WithDynamicPluginContext("MathPlugin", "calculator", map[string]any{
					"precision": "high",
				}).
				Build(ctx, host)
			Expect(err).NotTo(HaveOccurred())
			Expect(host.Counters().AgentCreates).To(Equal(1))

			Expect(agent.Close(ctx)).To(Succeed())
			Expect(agent.Close(ctx)).To(Succeed())
			Expect(host.Counters().AgentDestroys).To(Equal(1))
		})
	})

	Describe("streaming", func() {
		It("preserves order and terminates on the end sentinel", func() {
			key, receiver := rt.Streams.Create()
			defer receiver.Close()

			go func() {
				for i := 0; i < 5; i++ {
					rt.DeliverStream(key, []byte(fmt.Sprintf("chunk-%d", i)))
				}
				rt.DeliverStream(key, nil)
			}()

			recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			var events []string
			for {
				event, ok := receiver.Recv(recvCtx)
				if !ok {
					break
				}
				events = append(events, event)
			}
			Expect(events).To(Equal([]string{
				"chunk-0", "chunk-1", "chunk-2", "chunk-3", "chunk-4",
			}))
			Expect(rt.Streams.Len()).To(BeZero())
		})

		It("keeps concurrent streams independent", func() {
			keyA, recvA := rt.Streams.Create()
			keyB, recvB := rt.Streams.Create()
			defer recvA.Close()
			defer recvB.Close()

			rt.DeliverStream(keyA, []byte("alpha"))
			rt.DeliverStream(keyB, []byte("beta"))
			rt.DeliverStream(keyA, nil)
			rt.DeliverStream(keyB, nil)

			recvCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()

			event, ok := recvA.Recv(recvCtx)
			Expect(ok).To(BeTrue())
			Expect(event).To(Equal("alpha"))

			event, ok = recvB.Recv(recvCtx)
			Expect(ok).To(BeTrue())
			Expect(event).To(Equal("beta"))
		})
	})
})
