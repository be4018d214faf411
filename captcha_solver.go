package main

import (
	"bytes"
	"context"
	"image"
	"image/png"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/image/draw"
)

// CaptchaSolver makes exactly one attempt: screenshot, OCR, type, submit.
// It does not know whether the portal accepted the text; the SessionController
// decides that by watching for the result list.
type CaptchaSolver struct {
	loc        Locator
	contract   PortalContract
	recognizer Recognizer
	scale      int
	log        *logrus.Entry
}

func NewCaptchaSolver(loc Locator, contract PortalContract, recognizer Recognizer, scale int) *CaptchaSolver {
	if scale < 1 {
		scale = 1
	}
	return &CaptchaSolver{
		loc:        loc,
		contract:   contract,
		recognizer: recognizer,
		scale:      scale,
		log:        log.WithField("component", "captcha"),
	}
}

// Solve returns the attempt and, on a failed stage, a CaptchaRejectedError.
// An empty recognition is still typed and submitted.
func (s *CaptchaSolver) Solve(ctx context.Context) (CaptchaAttempt, error) {
	var attempt CaptchaAttempt

	img, err := s.loc.Find(s.contract.CaptchaImage)
	if err != nil {
		return s.reject(attempt, CaptchaStageImage, err)
	}
	attempt.ImageBytes, err = img.Screenshot()
	if err != nil {
		return s.reject(attempt, CaptchaStageImage, err)
	}

	prepared, err := preprocessCaptcha(attempt.ImageBytes, s.scale)
	if err != nil {
		// a screenshot we cannot decode still goes to OCR as-is
		s.log.WithError(err).Warn("captcha preprocessing failed")
		prepared = attempt.ImageBytes
	}
	attempt.RecognizedText, err = s.recognizer.Recognize(ctx, prepared)
	if err != nil {
		return s.reject(attempt, CaptchaStageOCR, err)
	}
	s.log.WithField("text", attempt.RecognizedText).Info("captcha recognized")

	input, err := s.loc.Find(s.contract.CaptchaInput)
	if err != nil {
		return s.reject(attempt, CaptchaStageInput, err)
	}
	if err := input.Input(attempt.RecognizedText); err != nil {
		return s.reject(attempt, CaptchaStageInput, err)
	}

	submit, err := s.loc.Find(s.contract.CaptchaSubmit)
	if err != nil {
		return s.reject(attempt, CaptchaStageSubmit, err)
	}
	if err := clickWithFallback(submit); err != nil {
		return s.reject(attempt, CaptchaStageSubmit, err)
	}
	attempt.Stage = CaptchaStageSubmit
	return attempt, nil
}

func (s *CaptchaSolver) reject(attempt CaptchaAttempt, stage CaptchaStage, err error) (CaptchaAttempt, error) {
	attempt.Stage = stage
	attempt.Accepted = false
	return attempt, &CaptchaRejectedError{Stage: stage, Text: attempt.RecognizedText, Err: err}
}

// preprocessCaptcha converts the screenshot to grayscale and upscales it,
// which noticeably helps tesseract on the portal's small noisy captchas.
func preprocessCaptcha(data []byte, scale int) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "decode captcha")
	}
	b := src.Bounds()

	gray := image.NewGray(b)
	draw.Draw(gray, b, src, b.Min, draw.Src)

	out := image.NewGray(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale))
	draw.CatmullRom.Scale(out, out.Bounds(), gray, b, draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, errors.Wrap(err, "encode captcha")
	}
	return buf.Bytes(), nil
}
