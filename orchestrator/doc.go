// Copyright 2025 Gateway Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package orchestrator runs a round-based multi-agent conversation: a set of
named Agents share a Context of prior Messages, and the Orchestrator decides
who speaks next until an agent signals Done or the round budget is spent.

# Agents

An Agent pairs a Role (User, Assistant, Planner, Executor, Reviewer,
Coordinator, Expert, or Custom) with a Process method that takes the running
Message, the shared Context, and returns a Response. LLMAgent is the only
built-in implementation: it renders AgentConfig's system prompt, the current
message and the last 10 context messages, sends that prompt through an
Invoker (registry.WrappedProvider.AsInvoker supplies one), and wraps the
reply into a Response addressed back to the sender. A Planner whose reply
contains "next" hands off to an Executor.

# Speaker selection

Config.SpeakerSelection controls who receives a message that names no
receiver:

  - SelectionRoundRobin cycles through Config.AgentOrder; without an
    AgentOrder the agents are taken in map iteration order, so the order
    is not defined
  - SelectionRandom picks a random registered agent
  - SelectionManual behaves like SelectionRoundRobin
  - SelectionAuto delivers the message to every agent whose CanHandle
    returns true

A Response naming a next-agent ID overrides whatever SpeakerSelection would
have picked, so one agent can hand off directly to another out of turn.

# Termination

Orchestrate stops when a Response is marked Done(), when its content
contains Config.TerminationCondition (case-insensitive; "TERMINATE" by
default), when no agent responds, or after MaxRounds rounds. If
Config.Timeout expires first, it returns the partial Result with Success
false. Result carries the session ID, the content of the final reply, the
round count, the IDs of the agents that spoke, and the full history; it does
not record which agent ended the run.

# Usage

	cfg := orchestrator.DefaultConfig()
	o := orchestrator.New(cfg)
	o.RegisterAgent(orchestrator.NewLLMAgent(expertCfg, routerClient))
	o.RegisterAgent(orchestrator.NewLLMAgent(criticCfg, routerClient))
	result, err := o.Orchestrate(ctx, "draft a migration plan", expertCfg.ID)

# Thread Safety

Orchestrator guards its agent registry with sync.RWMutex; RegisterAgent,
UnregisterAgent, and GetAgent are safe for concurrent use. A single
Orchestrate call is not meant to be driven concurrently with itself.
*/
package orchestrator
