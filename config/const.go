//  Copyright (c) 2023 Uber Technologies, Inc.
//
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

package config

// This file hosts non-user-configurable parameters --- these are for development and testing purposes only.

// EnvPrefix is the prefix of environment variables overriding configuration keys, e.g.
// CONFDROID_ANALYSIS_MAX_VISITS overrides analysis.max_visits.
const EnvPrefix = "CONFDROID"

// DefaultReceiverType is the array-resource type whose accessors are candidate trigger sites.
const DefaultReceiverType = "android.content.res.TypedArray"

// DefaultStackPlaceholder replaces the names of stack temporaries in canonicalized statement
// text, so that the same call lifted with different temporaries yields the same literal.
const DefaultStackPlaceholder = "$stack"

// DefaultMaxVisits bounds the number of points a single entry point walk may reach. Path
// enumeration is exponential in the number of branches; past this budget the walk stops and the
// findings made so far are kept.
const DefaultMaxVisits = 1_000_000

// DefaultMaxCallDepth bounds the depth of calling contexts the walk descends into.
const DefaultMaxCallDepth = 8

// DefaultMaxClauses bounds the clause count of a path predicate in conjunctive normal form. A
// predicate that would grow past it is dropped (treated as true).
const DefaultMaxClauses = 4096

// DefaultTimeoutMinutes is the wall clock budget of a whole run.
const DefaultTimeoutMinutes = 60

// DefaultTriggerMethods lists the resource accessors whose calls are trigger-relevant. Names
// ending in "*" match by prefix.
var DefaultTriggerMethods = []string{
	"getInt",
	"getInteger",
	"getColor",
	"getFont",
	"getFloat",
	"getString",
	"getDimension*",
	"getResourceId",
	"getText*",
	"getFraction",
	"getDrawable",
	"getBoolean",
	"getLayoutDimension",
	"getNonConfigurationString",
	"getNonResourceString",
	"getColorStateList",
}

// VarargPrefix names the synthetic variables tying a path predicate to a variable-arity argument.
const VarargPrefix = "vararg:"
