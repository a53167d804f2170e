//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/cucumber/godog"

	"truthlens/internal/verify/models"
)

var confidencePattern = regexp.MustCompile(`^\d{1,3}%$`)

// RegisterSteps registers all step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Background steps
	ctx.Step(`^the TruthLens gateway is running$`, tc.gatewayIsRunning)

	// Request steps
	ctx.Step(`^I enter the text "([^"]*)"$`, tc.enterText)
	ctx.Step(`^I attach an image "([^"]*)" of type "([^"]*)"$`, tc.attachImage)
	ctx.Step(`^I use request ID "([^"]*)"$`, tc.useRequestID)
	ctx.Step(`^I submit the verification$`, tc.submit)
	ctx.Step(`^I GET "([^"]*)"$`, tc.get)

	// Assertion steps
	ctx.Step(`^the response status should be (\d+)$`, tc.responseStatusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, tc.responseFieldShouldEqual)
	ctx.Step(`^the response should have field "([^"]*)"$`, tc.responseShouldHaveField)
	ctx.Step(`^the response should be a verdict$`, tc.responseShouldBeVerdict)
	ctx.Step(`^the response header "([^"]*)" should equal "([^"]*)"$`, tc.responseHeaderShouldEqual)
}

func (tc *TestContext) gatewayIsRunning(ctx context.Context) error {
	if err := tc.GET("/health"); err != nil {
		return fmt.Errorf("gateway not reachable at %s: %w", tc.BaseURL, err)
	}
	return tc.responseStatusShouldBe(ctx, 200)
}

func (tc *TestContext) enterText(_ context.Context, text string) error {
	tc.Text = text
	return nil
}

func (tc *TestContext) attachImage(_ context.Context, name, contentType string) error {
	tc.ImageName = name
	tc.ImageType = contentType
	tc.ImageData = []byte("e2e-image-" + name)
	return nil
}

func (tc *TestContext) useRequestID(_ context.Context, id string) error {
	tc.RequestID = id
	return nil
}

func (tc *TestContext) submit(context.Context) error {
	return tc.SubmitVerification()
}

func (tc *TestContext) get(_ context.Context, path string) error {
	return tc.GET(path)
}

func (tc *TestContext) responseStatusShouldBe(_ context.Context, expected int) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response received")
	}
	if tc.LastResponse.StatusCode != expected {
		return fmt.Errorf("expected status %d but got %d. Body: %s",
			expected, tc.LastResponse.StatusCode, string(tc.LastResponseBody))
	}
	return nil
}

func (tc *TestContext) responseFieldShouldEqual(_ context.Context, field, expected string) error {
	value, err := tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(value) != expected {
		return fmt.Errorf("expected field %s to equal %q but got %q", field, expected, fmt.Sprint(value))
	}
	return nil
}

func (tc *TestContext) responseShouldHaveField(_ context.Context, field string) error {
	_, err := tc.GetResponseField(field)
	return err
}

func (tc *TestContext) responseShouldBeVerdict(ctx context.Context) error {
	for _, field := range []string{"Verdict", "Confidence", "Explanation"} {
		if err := tc.responseShouldHaveField(ctx, field); err != nil {
			return err
		}
	}
	var v models.Verdict
	if err := json.Unmarshal(tc.LastResponseBody, &v); err != nil {
		return fmt.Errorf("response is not a verdict: %w", err)
	}
	switch v.Verdict {
	case models.VerdictTrue, models.VerdictFalse, models.VerdictMisleading, models.VerdictUnverified:
	default:
		return fmt.Errorf("unexpected verdict label %q", v.Verdict)
	}
	if !confidencePattern.MatchString(v.Confidence) {
		return fmt.Errorf("confidence %q is not a percentage", v.Confidence)
	}
	return nil
}

func (tc *TestContext) responseHeaderShouldEqual(_ context.Context, header, expected string) error {
	if tc.LastResponse == nil {
		return fmt.Errorf("no response received")
	}
	if got := tc.LastResponse.Header.Get(header); got != expected {
		return fmt.Errorf("expected header %s to equal %q but got %q", header, expected, got)
	}
	return nil
}
