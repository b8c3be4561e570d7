/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package passbook

import (
	"context"

	"github.com/jerry-enebeli/passbook/internal/apierror"
	"github.com/sirupsen/logrus"
)

// LinkTransfer pairs two transfer transactions of userID so each points at the other.
func (p *Passbook) LinkTransfer(ctx context.Context, userID, txID, pairID string) error {
	ctx, span := tracer.Start(ctx, "LinkTransfer")
	defer span.End()

	if userID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "user id is required", nil)
	}
	if err := p.datasource.LinkTransfer(ctx, userID, txID, pairID); err != nil {
		span.RecordError(err)
		return err
	}
	logrus.WithFields(logrus.Fields{"user_id": userID, "transaction_id": txID, "pair_id": pairID}).Info("transfer linked")
	return nil
}

// UnlinkTransfer clears the pairing of txID on both sides.
func (p *Passbook) UnlinkTransfer(ctx context.Context, userID, txID string) error {
	ctx, span := tracer.Start(ctx, "UnlinkTransfer")
	defer span.End()

	if userID == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, "user id is required", nil)
	}
	return p.datasource.UnlinkTransfer(ctx, userID, txID)
}
