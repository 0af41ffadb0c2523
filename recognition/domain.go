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

package recognition

import (
	"strconv"
	"strings"

	"github.com/huaxunhuang/confdroid-sub110/ir"
	"github.com/huaxunhuang/confdroid-sub110/symbolic"
)

const (
	calendarClass        = "java.util.Calendar"
	dateClass            = "java.util.Date"
	systemClass          = "java.lang.System"
	locationClass        = "android.location.Location"
	locationManagerClass = "android.location.LocationManager"
	smsMessageClass      = "android.telephony.SmsMessage"
)

// calendarFields names the java.util.Calendar field constants.
var calendarFields = map[int64]string{
	0:  "era",
	1:  "year",
	2:  "month",
	3:  "week_of_year",
	4:  "week_of_month",
	5:  "day_of_month",
	6:  "day_of_year",
	7:  "day_of_week",
	8:  "day_of_week_in_month",
	9:  "am_pm",
	10: "hour",
	11: "hour_of_day",
	12: "minute",
	13: "second",
	14: "millisecond",
}

var dateGetters = map[string]string{
	"getYear":    "year",
	"getMonth":   "month",
	"getDate":    "day_of_month",
	"getDay":     "day_of_week",
	"getHours":   "hour_of_day",
	"getMinutes": "minute",
	"getSeconds": "second",
	"getTime":    "now",
}

var smsGetters = map[string]string{
	"getMessageBody":               "body",
	"getDisplayMessageBody":        "body",
	"getOriginatingAddress":        "sender",
	"getDisplayOriginatingAddress": "sender",
	"getTimestampMillis":           "timestamp",
	"getServiceCenterAddress":      "service_center",
	"createFromPdu":                "message",
}

func calendarField(v ir.Value) string {
	c, ok := v.(*ir.Const)
	if !ok || c.Kind != ir.IntConst {
		return "field"
	}
	i, err := strconv.ParseInt(c.Text, 10, 64)
	if err != nil {
		return "field"
	}
	if name, ok := calendarFields[i]; ok {
		return name
	}
	return "field_" + c.Text
}

func matchDateTime(e *ir.InvokeExpr) (symbolic.Value, bool) {
	m := e.Method
	switch {
	case m.Class == calendarClass && m.Name == "get" && len(e.Args) == 1:
		return symbolic.NewDateTime(calendarField(e.Args[0])), true
	case m.Class == calendarClass && (m.Name == "getInstance" || m.Name == "getTimeInMillis"):
		return symbolic.NewDateTime("now"), true
	case m.Class == dateClass:
		if field, ok := dateGetters[m.Name]; ok {
			return symbolic.NewDateTime(field), true
		}
	case m.Class == systemClass && (m.Name == "currentTimeMillis" || m.Name == "nanoTime"):
		return symbolic.NewDateTime("now"), true
	case strings.HasPrefix(m.Class, "java.time.") && m.Name == "now":
		return symbolic.NewDateTime("now"), true
	}
	return nil, false
}

func matchLocation(e *ir.InvokeExpr) (symbolic.Value, bool) {
	m := e.Method
	switch {
	case m.Class == locationClass && strings.HasPrefix(m.Name, "get") && len(m.Name) > 3:
		return symbolic.NewLocation(strings.ToLower(m.Name[3:])), true
	case m.Class == locationManagerClass && m.Name == "getLastKnownLocation":
		return symbolic.NewLocation("last_known"), true
	}
	return nil, false
}

func matchSms(e *ir.InvokeExpr) (symbolic.Value, bool) {
	if e.Method.Class != smsMessageClass {
		return nil, false
	}
	if field, ok := smsGetters[e.Method.Name]; ok {
		return symbolic.NewSms(field), true
	}
	return nil, false
}

// domain adapts one of the matchers to a chain link handling definitions from invocations.
type domain struct {
	deferAll
	match func(*ir.InvokeExpr) (symbolic.Value, bool)
}

func (d domain) Definition(s *ir.Stmt, _ Env) ([]Binding, bool) {
	inv, ok := s.RHS.(*ir.InvokeExpr)
	if !ok {
		return nil, false
	}
	v, ok := d.match(inv)
	if !ok {
		return nil, false
	}
	for _, t := range stringArgs(inv) {
		v.AddTag(t)
	}
	return []Binding{{Value: s.LHS, Sym: v}}, true
}

var (
	dateTime = domain{match: matchDateTime}
	location = domain{match: matchLocation}
	sms      = domain{match: matchSms}
)

// floatArray recognizes allocations of float arrays.
type floatArray struct {
	deferAll
}

func (floatArray) Definition(s *ir.Stmt, env Env) ([]Binding, bool) {
	alloc, ok := s.RHS.(*ir.NewArrayExpr)
	if !ok || alloc.Elem != ir.Float {
		return nil, false
	}
	return []Binding{{Value: s.LHS, Sym: symbolic.NewFloatArray(operand(alloc.Size, env))}}, true
}
