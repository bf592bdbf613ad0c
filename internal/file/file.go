package file

import (
	"context"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const uploadFolder = "kyc-documents"

const defaultTimeout = 10 * time.Second

// FileUploader stores KYC document images in Cloudinary. References handed
// back to callers are Cloudinary public IDs, not URLs; URLs are derived on
// demand and signed.
type FileUploader struct {
	cloud_name string
	api_key    string
	api_secret string
}

func New(cloud_name, api_key, api_secret string) *FileUploader {
	return &FileUploader{
		cloud_name: cloud_name,
		api_key:    api_key,
		api_secret: api_secret,
	}
}

func (f *FileUploader) Upload(fileName string) (string, error) {
	cld, err := cloudinary.NewFromParams(f.cloud_name, f.api_key, f.api_secret)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	uploadResult, err := cld.Upload.Upload(ctx, fileName, uploader.UploadParams{
		Folder: uploadFolder,
	})
	if err != nil {
		return "", err
	}

	return uploadResult.PublicID, nil
}

// Delete removes a stored image. Cloudinary reports "not found" as a
// successful destroy, which is exactly the idempotency the review flow
// needs when a retried decision deletes documents a second time.
func (f *FileUploader) Delete(reference string) error {
	cld, err := cloudinary.NewFromParams(f.cloud_name, f.api_key, f.api_secret)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err = cld.Upload.Destroy(ctx, uploader.DestroyParams{
		PublicID: reference,
	})

	return err
}

// SignedURL returns a signed delivery URL for the admin review screen.
// Cloudinary URL signatures do not expire on their own, so ttlSeconds is
// advisory with this provider.
func (f *FileUploader) SignedURL(reference string, ttlSeconds int) (string, error) {
	cld, err := cloudinary.NewFromParams(f.cloud_name, f.api_key, f.api_secret)
	if err != nil {
		return "", err
	}

	img, err := cld.Image(reference)
	if err != nil {
		return "", err
	}

	img.Config.URL.SignURL = true

	return img.String()
}
