package extract

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/joseph-ayodele/codesnap/constants"
)

// SyntheticConfig controls the simulated latency of the offline fallback.
// The delay keeps loading indicators behaving the same as with real providers.
type SyntheticConfig struct {
	DelayMin        time.Duration
	DelayJitter     time.Duration // uniform extra delay in [0, DelayJitter)
	LastResortDelay time.Duration // delay before the last-resort constant
	Now             func() time.Time
	// NoDelay disables all waiting (tests, batch tools).
	NoDelay bool
}

type sample struct {
	text       string
	confidence float32
}

// syntheticSamples are pre-authored snippets, each with a deliberate bug.
var syntheticSamples = []sample{
	{
		text: `def greet(name)
    print("Hello, " + name)

greet("Alice")`,
		confidence: 0.92,
	},
	{
		text: `function calculateSum(a, b) {
    return a + b;
}

console.log(calculateSum(5, 3));`,
		confidence: 0.89,
	},
	{
		text: `public class HelloWorld {
    public static void main(String[] args) {
        System.out.println("Hello World")
    }
}`,
		confidence: 0.87,
	},
	{
		text: `#include <iostream>
using namespace std;

int main() {
    cout << "Hello World" << endl
    return 0;
}`,
		confidence: 0.85,
	},
	{
		text: `def fibonacci(n):
if n <= 1:
return n
else:
return fibonacci(n-1) + fibonacci(n-2)

print(fibonacci(10))`,
		confidence: 0.90,
	},
	{
		text: `let arr = [1, 2, 3, 4, 5];
let sum = 0;
for (let i = 0; i < arr.length; i++) {
    sum += arr[i]
}
console.log(sum);`,
		confidence: 0.88,
	},
	{
		text: `class Calculator:
    def __init__(self):
        self.result = 0

    def add(self, x, y)
        return x + y

calc = Calculator()
print(calc.add(10, 5))`,
		confidence: 0.91,
	},
	{
		text: `fn main() {
    let x = 5;
    let y = 10;
    println!("Sum: {}", x + y)
}`,
		confidence: 0.86,
	},
	{
		text: `var numbers = [1, 2, 3, 4, 5];
var doubled = numbers.map(function(n) {
    return n * 2
});
console.log(doubled);`,
		confidence: 0.84,
	},
	{
		text: `def bubble_sort(arr):
    n = len(arr)
    for i in range(n)
        for j in range(0, n-i-1):
            if arr[j] > arr[j+1]:
                arr[j], arr[j+1] = arr[j+1], arr[j]
    return arr

print(bubble_sort([64, 34, 25, 12, 22]))`,
		confidence: 0.93,
	},
}

// lastResort is returned when even the image metadata is unavailable.
var lastResort = sample{
	text: `def greet(name)
    print("Hello, " + name)

greet("Alice")`,
	confidence: 0.75,
}

// Synthetic produces a stand-in result from image metadata when no provider
// could read the image. It never fails.
type Synthetic struct {
	cfg SyntheticConfig
}

// DefaultSyntheticConfig is 1.5s plus up to 1s of jitter, and 1s before the
// last-resort constant.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		DelayMin:        1500 * time.Millisecond,
		DelayJitter:     time.Second,
		LastResortDelay: time.Second,
	}
}

// NewSynthetic uses cfg as given; zero durations do not wait.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Synthetic{cfg: cfg}
}

// SampleCount is the size of the synthetic table.
func SampleCount() int { return len(syntheticSamples) }

// SyntheticIndex is the table slot for an image of sizeBytes seen at nowMillis.
func SyntheticIndex(sizeBytes, nowMillis int64) int {
	n := uint64(len(syntheticSamples))
	return int((uint64(sizeBytes) + uint64(nowMillis)) % n)
}

// Generate selects a sample without waiting.
func (s *Synthetic) Generate(sizeBytes, nowMillis int64) Result {
	smp := syntheticSamples[SyntheticIndex(sizeBytes, nowMillis)]
	return Result{
		Text:       smp.text,
		Confidence: smp.confidence,
		Provider:   constants.ProviderSynthetic,
		Synthetic:  true,
	}
}

// Extract reads the image size, waits the simulated delay and returns the
// selected sample, or the last-resort constant if the size is unavailable.
func (s *Synthetic) Extract(ctx context.Context, img Image) Result {
	size, err := imageSize(img)
	if err != nil {
		s.sleep(ctx, s.cfg.LastResortDelay)
		return LastResort()
	}
	res := s.Generate(size, s.cfg.Now().UnixMilli())
	s.sleep(ctx, s.delay())
	return res
}

// LastResort is the unconditional fallback result.
func LastResort() Result {
	return Result{
		Text:       lastResort.text,
		Confidence: lastResort.confidence,
		Provider:   constants.ProviderSynthetic,
		Synthetic:  true,
	}
}

func (s *Synthetic) delay() time.Duration {
	if s.cfg.NoDelay {
		return 0
	}
	d := s.cfg.DelayMin
	if s.cfg.DelayJitter > 0 {
		d += rand.N(s.cfg.DelayJitter)
	}
	return d
}

func (s *Synthetic) sleep(ctx context.Context, d time.Duration) {
	if s.cfg.NoDelay || d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// imageSize shields the generator from nil handles and panicking implementations.
func imageSize(img Image) (size int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errMetadata
		}
	}()
	if img == nil {
		return 0, errMetadata
	}
	size, err = img.Size()
	if err == nil && size < 0 {
		err = errMetadata
	}
	return size, err
}

type metadataError struct{}

func (metadataError) Error() string { return "image metadata unavailable" }

var errMetadata error = metadataError{}
