package domain

type Compressor interface {
	Compress(sourcePath, destPath string) error
	Decompress(sourcePath, destPath string) error
	// Archive packs a directory into a single tar+gzip file.
	Archive(sourceDir, destPath string) error
	Extract(sourcePath, destDir string) error
}

type Encryptor interface {
	Encrypt(sourcePath, destPath, passphrase string) error
	Decrypt(sourcePath, destPath, passphrase string) error
}
