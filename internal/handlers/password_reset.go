package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"backend/internal/session"
	"backend/internal/verification"
)

type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required"`
}

type ResetPasswordRequest struct {
	NewPassword     string `json:"newPassword" binding:"required"`
	ConfirmPassword string `json:"confirmPassword" binding:"required"`
}

// ForgotPassword starts the reset flow: a time-boxed code is mailed to a
// known account and the challenge parked in the visitor's session.
func ForgotPassword(machine *verification.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ForgotPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		sess, ok := session.FromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := machine.StartReset(ctx, sess, req.Email)
		if err != nil {
			respondVerificationError(c, "RESET", err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// VerifyForgotOtp checks the reset code against the session challenge.
func VerifyForgotOtp(machine *verification.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req OtpRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		sess, ok := session.FromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		res, err := machine.VerifyReset(sess, req.Code)
		if err != nil {
			respondVerificationError(c, "RESET", err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// ResendForgotOtp reissues the reset code once the cooldown allows it.
func ResendForgotOtp(machine *verification.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := session.FromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := machine.ResendReset(ctx, sess)
		if err != nil {
			respondVerificationError(c, "RESET", err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}

// ResetPassword persists the new password for the challenge's account.
func ResetPassword(machine *verification.Machine) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req ResetPasswordRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		sess, ok := session.FromContext(c)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := machine.ResetPassword(ctx, sess, req.NewPassword, req.ConfirmPassword)
		if err != nil {
			respondVerificationError(c, "RESET", err)
			return
		}

		c.JSON(http.StatusOK, res)
	}
}
