package wisp_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	iwisp "github.com/kristofer/wisp/internal/wisp"
	wisp "github.com/kristofer/wisp/pkg/wisp"
)

// run compiles and interprets source with the stdlib installed, and
// returns whatever `print` wrote to stdout.
func run(t *testing.T, source string) string {
	t.Helper()
	var out bytes.Buffer
	in := wisp.Init(wisp.Config{
		Config: iwisp.Config{Stdout: &out},
		Stdlib: true,
	})
	status, _, err := in.Interpret(source, "test")
	require.NoError(t, err, "interpret failed: %v", err)
	require.Equal(t, wisp.StatusOK, status)
	return out.String()
}

// TestEndToEndScenarios exercises spec.md §8's script -> stdout table.
func TestEndToEndScenarios(t *testing.T) {
	tests := []struct {
		name   string
		source string
		want   string
	}{
		{
			"arithmetic",
			`print 1+2;`,
			"3\n",
		},
		{
			"loopConcat",
			`var s=""; for (var i=0;i<3;i=i+1) s=s+i; print s;`,
			"012\n",
		},
		{
			"overrideAndSuper",
			`class A { f(){return 1;} } class B : A { f(){return super.f()+10;} } print B().f();`,
			"11\n",
		},
		{
			"mapInsertionOrder",
			`var m={}; m["a"]=1; m["b"]=2; m["a"]=3; foreach (k,v in m) print k+"="+v;`,
			"a=3\nb=2\n",
		},
		{
			"closureSharedUpvalue",
			`fun counter(){var n=0; fun inc(){n=n+1; return n;} return inc;} var c=counter(); print c(); print c(); print c();`,
			"1\n2\n3\n",
		},
		{
			"tryCatch",
			`try { throw RuntimeException("oops"); } catch (Exception e) { print e.message; }`,
			"oops\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.source))
		})
	}
}

func TestVarargsPackedIntoArray(t *testing.T) {
	got := run(t, `
fun sum(first, ...rest) {
  var total = first;
  var i = 0;
  for (; i < len(rest); i = i+1) total = total + rest[i];
  return total;
}
print sum(1,2,3,4);
`)
	assert.Equal(t, "10\n", got)
}

// TestTupleUnpacking exercises UNPACK (spec.md §4.J) against the
// 2-element tuple a map iterator's next() produces, including the
// "fewer targets than tuple size" case.
func TestTupleUnpacking(t *testing.T) {
	got := run(t, `
var m={}; m["x"]=1;
foreach (pair in m) {
  var (k) = pair;
  print k;
}
`)
	assert.Equal(t, "x\n", got)
}

// TestUnpackNonTupleFillsFirstTargetOnly covers UNPACK's non-tuple case
// (spec.md §4.J): a plain value assigns to the first target, the rest
// get nil.
func TestUnpackNonTupleFillsFirstTargetOnly(t *testing.T) {
	got := run(t, `
var (a, b) = 5;
print a; print b;
`)
	assert.Equal(t, "5\nnil\n", got)
}

func TestIteratorDrivenForeach(t *testing.T) {
	got := run(t, `
class Range {
  n; i;
  Range(n) { this.n = n; this.i = 0; }
  hasNext() { return this.i < this.n; }
  next() { var v = this.i; this.i = this.i + 1; return v; }
  iterator() { return this; }
}
foreach (v in Range(3)) print v;
`)
	assert.Equal(t, "0\n1\n2\n", got)
}

func TestUncaughtExceptionReturnsRuntimeError(t *testing.T) {
	var out bytes.Buffer
	in := wisp.Init(wisp.Config{Config: iwisp.Config{Stdout: &out}, Stdlib: true})
	status, _, err := in.Interpret(`throw RuntimeException("boom");`, "test")
	assert.Equal(t, wisp.StatusRuntimeError, status)
	assert.Error(t, err)
}

func TestCompileErrorStatus(t *testing.T) {
	var out bytes.Buffer
	in := wisp.Init(wisp.Config{Config: iwisp.Config{Stdout: &out}, Stdlib: true})
	status, _, err := in.Interpret(`var = ;`, "test")
	assert.Equal(t, wisp.StatusCompileError, status)
	assert.Error(t, err)
}

// TestFinallyRunsOnNormalCompletion covers the ordinary path: a
// finally block runs once after the try body finishes without a
// thrown exception.
func TestFinallyRunsOnNormalCompletion(t *testing.T) {
	got := run(t, `
try {
  print "body";
} catch (Exception e) {
  print "caught";
} finally {
  print "finally";
}
`)
	assert.Equal(t, "body\nfinally\n", got)
}

// TestFinallyRunsOnCaughtException covers the path where a catch
// clause handles the exception; finally still runs exactly once
// afterward.
func TestFinallyRunsOnCaughtException(t *testing.T) {
	got := run(t, `
try {
  throw RuntimeException("boom");
} catch (Exception e) {
  print e.message;
} finally {
  print "finally";
}
`)
	assert.Equal(t, "boom\nfinally\n", got)
}

// TestFinallyRunsBeforeReturn covers spec.md §4.G's non-local-exit
// requirement: a `return` inside a try body still runs the pending
// finally block before the function actually returns.
func TestFinallyRunsBeforeReturn(t *testing.T) {
	got := run(t, `
fun f() {
  try {
    return "early";
  } catch (Exception e) {
  } finally {
    print "cleanup";
  }
  print "unreachable";
}
print f();
`)
	assert.Equal(t, "cleanup\nearly\n", got)
}

// TestFinallyRunsBeforeBreak covers a `break` escaping a try-with-
// finally nested inside a loop: the finally runs before control
// leaves the loop.
func TestFinallyRunsBeforeBreak(t *testing.T) {
	got := run(t, `
for (var i = 0; i < 3; i = i + 1) {
  try {
    if (i == 1) break;
    print i;
  } catch (Exception e) {
  } finally {
    print "f" + i;
  }
}
print "done";
`)
	assert.Equal(t, "0\nf0\nf1\ndone\n", got)
}

// TestFinallyRunsOnUncaughtPropagation covers spec.md §4.G's
// "propagated throw" case: an exception type this try doesn't catch
// still runs the finally block before continuing to unwind.
func TestFinallyRunsOnUncaughtPropagation(t *testing.T) {
	var out bytes.Buffer
	in := wisp.Init(wisp.Config{Config: iwisp.Config{Stdout: &out}, Stdlib: true})
	status, _, err := in.Interpret(`
class OtherError : Exception { OtherError(m) { this.message = m; } }
class MyError : Exception { MyError(m) { this.message = m; } }
try {
  try {
    throw MyError("deep");
  } catch (OtherError oe) {
    print "should not happen";
  } finally {
    print "inner-finally";
  }
} catch (Exception e) {
  print "outer-caught: " + e.message;
}
`, "test")
	require.NoError(t, err)
	assert.Equal(t, wisp.StatusOK, status)
	assert.Equal(t, "inner-finally\nouter-caught: deep\n", out.String())
}
