package services

import (
	"testing"

	"justice_flow_go/models"

	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicyFor(t *testing.T) {
	assert.Equal(t, PasswordPolicy{MinLength: CitizenPasswordLength}, PasswordPolicyFor(models.RoleCitizen, true))
	assert.Equal(t, PasswordPolicy{MinLength: StaffPasswordLength, RequireMixed: true}, PasswordPolicyFor(models.RoleJudge, true))
	assert.Equal(t, PasswordPolicy{MinLength: CitizenPasswordLength}, PasswordPolicyFor(models.RolePolice, false))
	assert.Equal(t, PasswordPolicy{MinLength: AdminPasswordLength, RequireMixed: true}, PasswordPolicyFor(models.RoleAdmin, false))
}

func TestPasswordPolicyCheck(t *testing.T) {
	staff := PasswordPolicyFor(models.RoleProsecutor, true)

	tests := []struct {
		name     string
		policy   PasswordPolicy
		password string
		ids      []string
		errMsg   string
	}{
		{name: "strong staff password", policy: staff, password: "Parquet-Douala-2024"},
		{name: "too short for staff", policy: staff, password: "Short1!", errMsg: "password must be at least 12 characters long"},
		{name: "no uppercase", policy: staff, password: "parquet-douala-24", errMsg: "password must contain at least one uppercase letter"},
		{name: "no lowercase", policy: staff, password: "PARQUET-DOUALA-24", errMsg: "password must contain at least one lowercase letter"},
		{name: "no digit", policy: staff, password: "Parquet-Douala-X", errMsg: "password must contain at least one number"},
		{name: "no symbol", policy: staff, password: "ParquetDouala24", errMsg: "password must contain at least one special character"},
		{name: "citizen floor", policy: PasswordPolicyFor(models.RoleCitizen, true), password: "goatfarm"},
		{name: "length counts characters", policy: PasswordPolicyFor(models.RoleCitizen, true), password: "ééééééé", errMsg: "password must be at least 8 characters long"},
		{name: "contains email", policy: staff, password: "Mbarga-Judge-2024!", ids: []string{"mbarga"}, errMsg: "password must not contain your name or email"},
		{name: "short identifiers ignored", policy: staff, password: "Tribunal-Yaounde-9", ids: []string{"tri"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Check(tt.password, tt.ids...)
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
			assert.EqualError(t, err, tt.errMsg)
		})
	}
}

func TestEmailLocalPart(t *testing.T) {
	assert.Equal(t, "mbarga", emailLocalPart("mbarga@justice.test"))
	assert.Equal(t, "plain", emailLocalPart("plain"))
}
