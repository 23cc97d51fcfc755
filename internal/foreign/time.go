package foreign

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"

	"garnet/internal/object"
	"garnet/internal/registry"
)

func registerTime(reg *registry.Registry) {
	reg.StaticMethod("Time", fnTimeNow(), "now")
	reg.StaticMethod("Time", fnTimeAt(), "at")
	reg.StaticMethod("Time", fnTimeMake(time.Local), "mktime", "local", "new")
	reg.StaticMethod("Time", fnTimeMake(time.UTC), "utc", "gm")
	reg.StaticMethod("Time", fnTimeParse(), "parse")

	reg.Method("Time", fnTimeToI(), "to_i", "tv_sec")
	reg.Method("Time", fnTimeToF(), "to_f")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Year()) }), "year")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Month()) }), "month", "mon")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Day()) }), "day", "mday")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Hour()) }), "hour")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Minute()) }), "min")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Second()) }), "sec")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Nanosecond() / 1000) }), "usec")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Nanosecond()) }), "nsec")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.Weekday()) }), "wday")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { return int64(t.YearDay()) }), "yday")
	reg.Method("Time", fnTimeField(func(t time.Time) int64 { _, off := t.Zone(); return int64(off) }), "utc_offset")
	for day := time.Sunday; day <= time.Saturday; day++ {
		reg.Method("Time", fnTimeWeekday(day), strings.ToLower(day.String())+"?")
	}
	reg.Method("Time", fnTimeZone(), "zone")
	reg.Method("Time", fnTimeUTC(true), "utc", "getutc")
	reg.Method("Time", fnTimeUTC(false), "localtime", "getlocal")
	reg.Method("Time", fnTimeIsUTC(), "utc?")
	reg.Method("Time", fnTimePlus(), "+")
	reg.Method("Time", fnTimeMinus(), "-")
	reg.Method("Time", fnTimeCompare(), "<=>")
	reg.Method("Time", fnTimeEqual(), "==", "eql?")
	reg.Method("Time", fnComparableOp(func(c int) bool { return c < 0 }), "<")
	reg.Method("Time", fnComparableOp(func(c int) bool { return c <= 0 }), "<=")
	reg.Method("Time", fnComparableOp(func(c int) bool { return c > 0 }), ">")
	reg.Method("Time", fnComparableOp(func(c int) bool { return c >= 0 }), ">=")
	reg.Method("Time", fnComparableBetween(), "between?")
	reg.Method("Time", fnTimeStrftime(), "strftime")
	reg.Method("Time", fnTimeLayout(time.RFC3339), "iso8601", "xmlschema")
	reg.Method("Time", fnTimeLayout("2006-01-02 15:04:05 -0700"), "to_s")
	reg.Method("Time", fnTimeInspect(), "inspect")
}

func selfTime(ctx object.EvaluatorContext) time.Time {
	return ctx.Self().(*object.NativeObject).Value.(time.Time)
}

func timeArg(ctx object.EvaluatorContext, obj object.Object) (time.Time, bool) {
	if n, ok := obj.(*object.NativeObject); ok {
		t, isTime := n.Value.(time.Time)
		return t, isTime
	}
	return time.Time{}, false
}

func fnTimeNow() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return ctx.Wrap(time.Now()), nil
	}
}

// seconds splits a number of seconds into whole seconds and nanoseconds.
func seconds(ctx object.EvaluatorContext, obj object.Object) (int64, int64, error) {
	f, isInt, err := number(ctx, obj)
	if err != nil {
		return 0, 0, err
	}
	if isInt {
		return obj.(*object.Integer).Value, 0, nil
	}
	whole := math.Floor(f)
	return int64(whole), int64(math.Round((f - whole) * 1e9)), nil
}

func fnTimeAt() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		if t, ok := timeArg(ctx, args[0]); ok {
			return ctx.Wrap(t), nil
		}
		sec, nsec, err := seconds(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return ctx.Wrap(time.Unix(sec, nsec)), nil
	}
}

// fnTimeMake is Time.local(year, month = 1, day = 1, hour = 0, min = 0,
// sec = 0) and its UTC twin.
func fnTimeMake(loc *time.Location) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if len(args) == 0 && ctx.MethodName() == "new" {
			return ctx.Wrap(time.Now()), nil
		}
		if err := checkArgs(ctx, args, 1, 6); err != nil {
			return nil, err
		}
		parts := []int64{0, 1, 1, 0, 0, 0}
		var nsec int64
		for i, arg := range args {
			if i == 5 {
				sec, frac, err := seconds(ctx, arg)
				if err != nil {
					return nil, err
				}
				parts[i], nsec = sec, frac
				continue
			}
			v, err := toInt(ctx, arg)
			if err != nil {
				return nil, err
			}
			parts[i] = v
		}
		if parts[1] < 1 || parts[1] > 12 {
			return nil, ctx.NewError("ArgumentError", "mon out of range")
		}
		t := time.Date(int(parts[0]), time.Month(parts[1]), int(parts[2]), int(parts[3]), int(parts[4]), int(parts[5]), int(nsec), loc)
		return ctx.Wrap(t), nil
	}
}

// fnTimeParse accepts the date formats cast understands: RFC 3339, RFC
// 1123, "2006-01-02 15:04:05" and friends.
func fnTimeParse() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		s, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		t, err := cast.ToTimeInDefaultLocationE(strings.TrimSpace(s), time.Local)
		if err != nil {
			return nil, ctx.NewError("ArgumentError", "no time information in %q", s)
		}
		return ctx.Wrap(t), nil
	}
}

func fnTimeToI() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(selfTime(ctx).Unix()), nil
	}
}

func fnTimeToF() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return float(float64(selfTime(ctx).UnixNano()) / 1e9), nil
	}
}

func fnTimeField(field func(time.Time) int64) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return integer(field(selfTime(ctx))), nil
	}
}

func fnTimeWeekday(day time.Weekday) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(selfTime(ctx).Weekday() == day), nil
	}
}

func fnTimeZone() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		name, _ := selfTime(ctx).Zone()
		return str(name), nil
	}
}

func fnTimeUTC(utc bool) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if utc {
			return ctx.Wrap(selfTime(ctx).UTC()), nil
		}
		return ctx.Wrap(selfTime(ctx).Local()), nil
	}
}

func fnTimeIsUTC() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return object.NativeBool(selfTime(ctx).Location() == time.UTC), nil
	}
}

func duration(ctx object.EvaluatorContext, obj object.Object) (time.Duration, error) {
	sec, nsec, err := seconds(ctx, obj)
	if err != nil {
		return 0, err
	}
	return time.Duration(sec)*time.Second + time.Duration(nsec), nil
}

func fnTimePlus() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		if _, ok := timeArg(ctx, args[0]); ok {
			return nil, ctx.NewError("TypeError", "time + time?")
		}
		d, err := duration(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return ctx.Wrap(selfTime(ctx).Add(d)), nil
	}
}

// fnTimeMinus subtracts seconds, or answers the float seconds between two
// times.
func fnTimeMinus() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		if other, ok := timeArg(ctx, args[0]); ok {
			return float(selfTime(ctx).Sub(other).Seconds()), nil
		}
		d, err := duration(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return ctx.Wrap(selfTime(ctx).Add(-d)), nil
	}
}

func fnTimeCompare() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, ok := timeArg(ctx, args[0])
		if !ok {
			return object.NIL, nil
		}
		return integer(int64(selfTime(ctx).Compare(other))), nil
	}
}

func fnTimeEqual() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		other, ok := timeArg(ctx, args[0])
		return object.NativeBool(ok && selfTime(ctx).Equal(other)), nil
	}
}

func fnTimeLayout(layout string) object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		return str(selfTime(ctx).Format(layout)), nil
	}
}

func fnTimeInspect() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		t := selfTime(ctx)
		layout := "2006-01-02 15:04:05"
		if t.Nanosecond() != 0 {
			layout += ".999999999"
		}
		layout += " -0700"
		if t.Location() == time.UTC {
			layout = strings.TrimSuffix(layout, " -0700") + " UTC"
		}
		return str(t.Format(layout)), nil
	}
}

func fnTimeStrftime() object.ForeignFunction {
	return func(ctx object.EvaluatorContext, args ...object.Object) (object.Object, error) {
		if err := checkArgs(ctx, args, 1, 1); err != nil {
			return nil, err
		}
		pattern, err := toStr(ctx, args[0])
		if err != nil {
			return nil, err
		}
		return str(strftime(selfTime(ctx), pattern)), nil
	}
}

// strftime expands the common C directives. A "-" flag drops padding and
// unknown directives are copied through.
func strftime(t time.Time, pattern string) string {
	var out strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' || i+1 == len(pattern) {
			out.WriteByte(c)
			continue
		}
		i++
		unpadded := false
		if pattern[i] == '-' && i+1 < len(pattern) {
			unpadded = true
			i++
		}
		num := func(v, width int) string {
			s := strconv.Itoa(v)
			if unpadded {
				return s
			}
			return strings.Repeat("0", max(width-len(s), 0)) + s
		}
		hour12 := t.Hour() % 12
		if hour12 == 0 {
			hour12 = 12
		}
		switch pattern[i] {
		case 'Y':
			out.WriteString(strconv.Itoa(t.Year()))
		case 'C':
			out.WriteString(num(t.Year()/100, 2))
		case 'y':
			out.WriteString(num(t.Year()%100, 2))
		case 'm':
			out.WriteString(num(int(t.Month()), 2))
		case 'd':
			out.WriteString(num(t.Day(), 2))
		case 'e':
			s := strconv.Itoa(t.Day())
			if !unpadded && len(s) < 2 {
				s = " " + s
			}
			out.WriteString(s)
		case 'j':
			out.WriteString(num(t.YearDay(), 3))
		case 'H':
			out.WriteString(num(t.Hour(), 2))
		case 'I':
			out.WriteString(num(hour12, 2))
		case 'l':
			out.WriteString(strconv.Itoa(hour12))
		case 'M':
			out.WriteString(num(t.Minute(), 2))
		case 'S':
			out.WriteString(num(t.Second(), 2))
		case 'L':
			out.WriteString(num(t.Nanosecond()/1e6, 3))
		case 'N':
			out.WriteString(num(t.Nanosecond(), 9))
		case 'p':
			out.WriteString(t.Format("PM"))
		case 'P':
			out.WriteString(strings.ToLower(t.Format("PM")))
		case 'A':
			out.WriteString(t.Weekday().String())
		case 'a':
			out.WriteString(t.Weekday().String()[:3])
		case 'B':
			out.WriteString(t.Month().String())
		case 'b', 'h':
			out.WriteString(t.Month().String()[:3])
		case 'u':
			wd := int(t.Weekday())
			if wd == 0 {
				wd = 7
			}
			out.WriteString(strconv.Itoa(wd))
		case 'w':
			out.WriteString(strconv.Itoa(int(t.Weekday())))
		case 'Z':
			name, _ := t.Zone()
			out.WriteString(name)
		case 'z':
			out.WriteString(t.Format("-0700"))
		case 's':
			out.WriteString(strconv.FormatInt(t.Unix(), 10))
		case 'F':
			out.WriteString(t.Format("2006-01-02"))
		case 'T', 'X':
			out.WriteString(t.Format("15:04:05"))
		case 'D', 'x':
			out.WriteString(t.Format("01/02/06"))
		case 'R':
			out.WriteString(t.Format("15:04"))
		case 'c':
			out.WriteString(t.Format("Mon Jan  2 15:04:05 2006"))
		case '%':
			out.WriteByte('%')
		default:
			out.WriteByte('%')
			if unpadded {
				out.WriteByte('-')
			}
			out.WriteByte(pattern[i])
		}
	}
	return out.String()
}
